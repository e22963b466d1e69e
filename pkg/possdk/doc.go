// Package possdk es el cliente Go del backend de la joyería. Maneja login,
// sesiones autenticadas y la selección de sucursal del lado del cliente: una
// sesión de admin puede elegir sucursal y el SDK agrega branchId a cada
// petición; para cualquier otra sesión la selección no viaja nunca al
// servidor.
package possdk
