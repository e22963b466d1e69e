package possdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
)

// Session es una sesión autenticada. La selección de sucursal vive aquí, del
// lado del cliente: cambiarla nunca toca el token. Solo una sesión admin
// envía branchId; para el resto el servidor manda con la sucursal del token
// y el SDK ni siquiera transmite la selección.
type Session struct {
	client *Client
	store  ScopeStore

	mu             sync.RWMutex
	token          string
	user           User
	selectedBranch *uint // nil: sin selección (admin ve todo)

	// onScopeChange se dispara tras cada SelectBranch/ClearBranch para que
	// la aplicación recargue sus vistas con el nuevo alcance.
	onScopeChange func(branchID *uint)
}

func newSession(c *Client, token string, user User, store ScopeStore) *Session {
	s := &Session{
		client: c,
		store:  store,
		token:  token,
		user:   user,
	}

	// restaurar la selección previa, solo relevante para admin
	if store != nil && user.IsAdmin() {
		if saved, err := store.Load(); err == nil && saved != nil {
			s.selectedBranch = saved
		}
	}
	return s
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SelectedBranch devuelve la sucursal seleccionada, o nil si no hay
// selección.
func (s *Session) SelectedBranch() *uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedBranch == nil {
		return nil
	}
	v := *s.selectedBranch
	return &v
}

// OnScopeChange registra el callback de recarga. La aplicación lo usa para
// volver a consultar sus listados cuando cambia la sucursal seleccionada.
func (s *Session) OnScopeChange(fn func(branchID *uint)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onScopeChange = fn
}

// SelectBranch cambia la sucursal seleccionada. En una sesión que no es
// admin la selección es un no-op visible: se guarda localmente pero jamás se
// envía, y el servidor seguiría ignorándola de cualquier forma.
func (s *Session) SelectBranch(branchID uint) error {
	s.mu.Lock()
	s.selectedBranch = &branchID
	store := s.store
	fn := s.onScopeChange
	s.mu.Unlock()

	if store != nil {
		if err := store.Save(&branchID); err != nil {
			return fmt.Errorf("no se pudo persistir la selección: %w", err)
		}
	}
	if fn != nil {
		fn(&branchID)
	}
	return nil
}

// ClearBranch quita la selección; una sesión admin vuelve a ver todas las
// sucursales.
func (s *Session) ClearBranch() error {
	s.mu.Lock()
	s.selectedBranch = nil
	store := s.store
	fn := s.onScopeChange
	s.mu.Unlock()

	if store != nil {
		if err := store.Save(nil); err != nil {
			return fmt.Errorf("no se pudo persistir la selección: %w", err)
		}
	}
	if fn != nil {
		fn(nil)
	}
	return nil
}

// scopeQuery arma los parámetros de alcance de la petición. Solo una sesión
// admin con selección activa produce algo.
func (s *Session) scopeQuery() url.Values {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := url.Values{}
	if s.user.IsAdmin() && s.selectedBranch != nil {
		q.Set("branchId", strconv.FormatUint(uint64(*s.selectedBranch), 10))
	}
	return q
}

// do ejecuta una petición autenticada contra path, agregando el token y el
// branchId cuando aplica. out puede ser nil para respuestas sin cuerpo útil.
func (s *Session) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	u, err := url.Parse(s.client.BaseURL + path)
	if err != nil {
		return err
	}
	q := u.Query()
	for k, vs := range s.scopeQuery() {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: respuesta inválida: %w", method, path, err)
	}
	return nil
}

// ---- Operaciones de la API ----

type Branch struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Active  bool   `json:"active"`
}

// ListBranches trae el catálogo de sucursales para el selector.
func (s *Session) ListBranches(ctx context.Context) ([]Branch, error) {
	var branches []Branch
	if err := s.do(ctx, http.MethodGet, "/api/branches", nil, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

type Sale struct {
	ID       uint    `json:"id"`
	BranchID uint    `json:"branch_id"`
	Folio    string  `json:"folio"`
	Status   string  `json:"status"`
	Total    float64 `json:"total"`
}

func (s *Session) ListSales(ctx context.Context) ([]Sale, error) {
	var sales []Sale
	if err := s.do(ctx, http.MethodGet, "/api/sales", nil, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

type InventoryItem struct {
	ID       uint    `json:"id"`
	BranchID uint    `json:"branch_id"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Status   string  `json:"status"`
}

func (s *Session) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	var items []InventoryItem
	if err := s.do(ctx, http.MethodGet, "/api/inventory", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
