package possdk

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// ScopeStore persiste la sucursal seleccionada entre ejecuciones del
// cliente. nil significa "sin selección".
type ScopeStore interface {
	Load() (*uint, error)
	Save(branchID *uint) error
}

type scopeFile struct {
	BranchID *uint `json:"branch_id"`
}

// FileScopeStore guarda la selección en un archivo JSON, típicamente bajo el
// directorio de configuración del usuario.
type FileScopeStore struct {
	Path string
}

func NewFileScopeStore(path string) *FileScopeStore {
	return &FileScopeStore{Path: path}
}

func (f *FileScopeStore) Load() (*uint, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var sf scopeFile
	if err := json.Unmarshal(data, &sf); err != nil {
		// un archivo corrupto cuenta como "sin selección"
		return nil, nil
	}
	return sf.BranchID, nil
}

func (f *FileScopeStore) Save(branchID *uint) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(scopeFile{BranchID: branchID})
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o644)
}

// MemoryScopeStore es un ScopeStore en memoria, útil en pruebas y en
// procesos que no quieren persistencia.
type MemoryScopeStore struct {
	branchID *uint
}

func (m *MemoryScopeStore) Load() (*uint, error) {
	return m.branchID, nil
}

func (m *MemoryScopeStore) Save(branchID *uint) error {
	m.branchID = branchID
	return nil
}
