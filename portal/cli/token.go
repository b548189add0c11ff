package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/Astemirdum/library-portal/pkg/auth"
	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	tokenDir  = ".libctl"
	tokenName = "token"
)

type credentials struct {
	Token   string     `json:"token"`
	Role    model.Role `json:"userRole"`
	Name    string     `json:"userName"`
	SavedAt time.Time  `json:"savedAt"`
}

// tokenFile keeps the signed-in user between runs. It ends the sign-in once the API
// rejects the token.
type tokenFile struct {
	path string
	log  *zap.Logger
	now  func() time.Time
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(tokenDir, tokenName)
	}
	return filepath.Join(home, tokenDir, tokenName)
}

func newTokenFile(path string, log *zap.Logger) *tokenFile {
	return &tokenFile{path: path, log: log, now: time.Now}
}

func (f *tokenFile) Load() (credentials, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return credentials{}, errs.ErrNoSession
	}
	if err != nil {
		return credentials{}, errors.Wrap(err, "read token")
	}
	var c credentials
	if err := json.Unmarshal(data, &c); err != nil || c.Token == "" {
		_ = f.Remove()
		return credentials{}, errs.ErrNoSession
	}
	if auth.Expired(c.Token, f.now()) {
		_ = f.Remove()
		return credentials{}, errs.ErrUnauthorized
	}
	return c, nil
}

func (f *tokenFile) Save(c credentials) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "token dir")
	}
	c.SavedAt = f.now()
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(f.path, data, 0o600), "write token")
}

func (f *tokenFile) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Reject forgets the token. The API client calls it on every 401.
func (f *tokenFile) Reject(_ context.Context) {
	if err := f.Remove(); err != nil {
		f.log.Error("remove token", zap.Error(err))
	}
}

// Context returns ctx carrying the token and the user of c.
func (c credentials) Context(ctx context.Context) context.Context {
	ctx = auth.WithToken(ctx, c.Token)
	return auth.WithUser(ctx, auth.User{Name: c.Name, Role: string(c.Role)})
}
