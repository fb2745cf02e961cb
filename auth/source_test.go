package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStaticSource(t *testing.T) {
	t.Setenv("CHAT_TEST_TOKEN", "from-env")

	tests := []struct {
		name    string
		value   string
		want    string
		wantErr error
	}{
		{"literal", "abc", "abc", nil},
		{"expanded", "${CHAT_TEST_TOKEN}", "from-env", nil},
		{"empty", "", "", ErrNoToken},
		{"whitespace", "  ", "", ErrNoToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StaticSource{Value: tt.value}.Token(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Token() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Token() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStaticSource_MissingVar(t *testing.T) {
	_, err := StaticSource{Value: "${CHAT_TEST_DEFINITELY_UNSET}"}.Token(context.Background())
	if err == nil || !strings.Contains(err.Error(), "CHAT_TEST_DEFINITELY_UNSET") {
		t.Errorf("Token() error = %v, want missing variable", err)
	}
}

func TestEnvSource(t *testing.T) {
	t.Setenv("CHAT_A", "")
	t.Setenv("CHAT_B", "second")

	got, err := EnvSource{Names: []string{"CHAT_A", "CHAT_B"}}.Token(context.Background())
	if err != nil || got != "second" {
		t.Errorf("Token() = %q, %v, want second", got, err)
	}

	_, err = EnvSource{Names: []string{"CHAT_A"}}.Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Token() error = %v, want ErrNoToken", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	if err := os.WriteFile(path, []byte("file-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := FileSource{Path: path}.Token(context.Background())
	if err != nil || got != "file-token" {
		t.Errorf("Token() = %q, %v, want file-token", got, err)
	}

	_, err = FileSource{Path: filepath.Join(dir, "missing")}.Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("missing file error = %v, want ErrNoToken", err)
	}

	_, err = FileSource{}.Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("empty path error = %v, want ErrNoToken", err)
	}
}

func TestChain_FirstNonEmptyWins(t *testing.T) {
	var calls []string
	src := func(name, tok string) TokenSource {
		return TokenSourceFunc(func(context.Context) (string, error) {
			calls = append(calls, name)
			if tok == "" {
				return "", ErrNoToken
			}
			return tok, nil
		})
	}

	chain := Chain{src("static", ""), src("env", "env-token"), src("file", "file-token")}
	got, err := chain.Token(context.Background())
	if err != nil || got != "env-token" {
		t.Fatalf("Token() = %q, %v, want env-token", got, err)
	}
	if strings.Join(calls, ",") != "static,env" {
		t.Errorf("calls = %v, want static,env", calls)
	}
}

func TestChain_Empty(t *testing.T) {
	_, err := Chain{}.Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Token() error = %v, want ErrNoToken", err)
	}
}

func TestChain_KeepsSourceErrors(t *testing.T) {
	boom := errors.New("boom")
	chain := Chain{
		TokenSourceFunc(func(context.Context) (string, error) { return "", boom }),
		EnvSource{Names: []string{"CHAT_TEST_DEFINITELY_UNSET"}},
	}

	_, err := chain.Token(context.Background())
	if !errors.Is(err, ErrNoToken) || !errors.Is(err, boom) {
		t.Errorf("Token() error = %v, want ErrNoToken wrapping boom", err)
	}
}

func TestChain_SkipsFailingSource(t *testing.T) {
	chain := Chain{
		TokenSourceFunc(func(context.Context) (string, error) { return "", errors.New("boom") }),
		StaticSource{Value: "ok"},
	}

	got, err := chain.Token(context.Background())
	if err != nil || got != "ok" {
		t.Errorf("Token() = %q, %v, want ok", got, err)
	}
}
