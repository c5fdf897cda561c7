// Package auth holds user accounts and the bearer tokens handed out at
// login. Accounts live in a YAML file; tokens are in-memory and expire
// after a period of inactivity.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrExists       = errors.New("user already exists")
)

// Profile is the free-form account information folded into the
// assistant's instruction at chat time.
type Profile struct {
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	Age     int    `yaml:"age,omitempty" json:"age,omitempty"`
	Gender  string `yaml:"gender,omitempty" json:"gender,omitempty"`
	Job     string `yaml:"job,omitempty" json:"job,omitempty"`
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
	Email   string `yaml:"email,omitempty" json:"email,omitempty"`
}

type account struct {
	Username     string  `yaml:"username"`
	PasswordHash string  `yaml:"password"`
	Profile      Profile `yaml:"profile,omitempty"`
}

type usersFile struct {
	Users []account `yaml:"users"`
}

// UserStore keeps accounts in a YAML file, rewritten in full on every
// change. Passwords are stored as hex-encoded SHA-256 digests.
type UserStore struct {
	mu   sync.Mutex
	path string
}

func NewUserStore(path string) (*UserStore, error) {
	if path == "" {
		return nil, errors.New("users path is required")
	}
	s := &UserStore{path: path}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *UserStore) load() (usersFile, error) {
	var f usersFile
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("read users file: %w", err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse users file: %w", err)
	}
	return f, nil
}

func (s *UserStore) save(f usersFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode users file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	return nil
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Register creates an account. Usernames are case-insensitive.
func (s *UserStore) Register(username, password string, profile Profile) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return err
	}
	for _, a := range f.Users {
		if strings.EqualFold(a.Username, username) {
			return ErrExists
		}
	}
	f.Users = append(f.Users, account{
		Username:     username,
		PasswordHash: hashPassword(password),
		Profile:      profile,
	})
	return s.save(f)
}

// Authenticate checks credentials and returns the canonical username.
func (s *UserStore) Authenticate(username, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return "", err
	}
	want := hashPassword(password)
	for _, a := range f.Users {
		if !strings.EqualFold(a.Username, strings.TrimSpace(username)) {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(a.PasswordHash), []byte(want)) == 1 {
			return a.Username, nil
		}
		return "", ErrUnauthorized
	}
	return "", ErrUnauthorized
}

// LoadProfile returns the stored profile for username.
func (s *UserStore) LoadProfile(username string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return Profile{}, err
	}
	for _, a := range f.Users {
		if strings.EqualFold(a.Username, username) {
			return a.Profile, nil
		}
	}
	return Profile{}, ErrNotFound
}

// Describe renders a profile as a short prompt-friendly line. Empty
// fields are omitted; an all-empty profile renders as "".
func (p Profile) Describe() string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, "name: "+p.Name)
	}
	if p.Age > 0 {
		parts = append(parts, fmt.Sprintf("age: %d", p.Age))
	}
	if p.Gender != "" {
		parts = append(parts, "gender: "+p.Gender)
	}
	if p.Job != "" {
		parts = append(parts, "job: "+p.Job)
	}
	if p.Address != "" {
		parts = append(parts, "address: "+p.Address)
	}
	if p.Email != "" {
		parts = append(parts, "email: "+p.Email)
	}
	return strings.Join(parts, ", ")
}
