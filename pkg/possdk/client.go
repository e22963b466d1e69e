package possdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client habla con el backend. Las operaciones sin autenticar viven aquí; las
// autenticadas en Session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// User es la porción del usuario que el cliente necesita conocer.
type User struct {
	ID          uint     `json:"id"`
	Username    string   `json:"username"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	BranchID    *uint    `json:"branch_id"`
	Permissions []string `json:"permissions"`
}

// IsAdmin replica la regla del servidor: rol admin o permiso "all".
func (u *User) IsAdmin() bool {
	if u.Role == "admin" {
		return true
	}
	for _, p := range u.Permissions {
		if p == "all" {
			return true
		}
	}
	return false
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// APIError es un error HTTP del backend con su mensaje original.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}

// Login autentica con usuario y contraseña y devuelve una sesión lista para
// usar. Si store no es nil, la sesión recuerda la sucursal seleccionada entre
// ejecuciones.
func (c *Client) Login(ctx context.Context, username, password string, store ScopeStore) (*Session, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("login: respuesta inválida: %w", err)
	}

	return newSession(c, lr.Token, lr.User, store), nil
}

// NewSessionFromToken reconstruye una sesión a partir de un token guardado.
func (c *Client) NewSessionFromToken(token string, user User, store ScopeStore) *Session {
	return newSession(c, token, user, store)
}
