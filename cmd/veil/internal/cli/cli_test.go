package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thalib/veil/cmd/veil/internal/config"
	"github.com/thalib/veil/cmd/veil/internal/database"
	"github.com/thalib/veil/cmd/veil/internal/password"
	"github.com/thalib/veil/cmd/veil/internal/runid"
	"github.com/thalib/veil/cmd/veil/internal/users"
)

// run executes the command tree with the given stdin and returns the exit
// code, stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	code := 0
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		code = 1
		if !errors.Is(err, ErrMismatch) {
			stderr.WriteString("Error: " + err.Error() + "\n")
		}
	}
	return code, stdout.String(), stderr.String()
}

// writeConfig writes a config pointing at a fresh SQLite users database.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "users.db")
	return writeSQLiteConfig(t, dbPath, 4, ""), dbPath
}

// writeSQLiteConfig writes a config for the SQLite database at dbPath with the
// given hashing cost. extra is appended verbatim.
func writeSQLiteConfig(t *testing.T, dbPath string, cost int, extra string) string {
	t.Helper()

	content := fmt.Sprintf("database:\n  connection: sqlite\n  name: %s\npassword:\n  cost: %d\n%s", dbPath, cost, extra)
	configPath := filepath.Join(t.TempDir(), "veil.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func seedUsers(t *testing.T, dbPath string) {
	t.Helper()

	driver, err := database.NewDriver(database.Config{ConnectionString: "sqlite://" + dbPath})
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
	ctx := context.Background()
	if err := driver.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer driver.Close()

	statements := []string{
		"CREATE TABLE users (name TEXT, email TEXT, phone TEXT, ssn TEXT, password TEXT, ip TEXT)",
		"INSERT INTO users VALUES ('Bob', 'bob@dylan.com', '000-123-4567', '000-12-3456', 'bobbycool', '192.168.0.1')",
		"INSERT INTO users VALUES ('Ann', 'ann@example.com', '555-0100', '111-22-3333', 'hunter2', '10.0.0.7')",
	}
	for _, stmt := range statements {
		if _, err := driver.Exec(ctx, stmt); err != nil {
			t.Fatalf("failed to seed users: %v", err)
		}
	}
}

func TestHashAndVerify(t *testing.T) {
	configPath, _ := writeConfig(t)

	code, stdout, stderr := run(t, "correct horse\n", "hash", "--config", configPath)
	if code != 0 {
		t.Fatalf("hash exited %d: %s", code, stderr)
	}
	digest := strings.TrimSpace(stdout)
	if !strings.HasPrefix(digest, "$2a$04$") {
		t.Fatalf("Expected cost-4 bcrypt digest, got %q", digest)
	}
	if strings.Contains(stdout+stderr, "correct horse") {
		t.Error("plaintext echoed by hash")
	}

	code, stdout, _ = run(t, "correct horse\n", "verify", digest)
	if code != 0 || strings.TrimSpace(stdout) != "match" {
		t.Errorf("verify correct password: code %d, output %q", code, stdout)
	}

	code, stdout, stderr = run(t, "wrong horse\n", "verify", digest)
	if code != 1 || strings.TrimSpace(stdout) != "mismatch" {
		t.Errorf("verify wrong password: code %d, output %q", code, stdout)
	}
	if stderr != "" {
		t.Errorf("mismatch must not print an error, got %q", stderr)
	}

	code, _, _ = run(t, "anything\n", "verify", "not-a-digest")
	if code != 1 {
		t.Errorf("verify garbage digest: expected exit 1, got %d", code)
	}
}

func TestHash_EmptyStdin(t *testing.T) {
	configPath, _ := writeConfig(t)

	code, stdout, stderr := run(t, "", "hash", "--config", configPath)
	if code != 0 {
		t.Fatalf("hash exited %d: %s", code, stderr)
	}
	if !password.Verify(password.Digest(strings.TrimSpace(stdout)), "") {
		t.Error("digest of empty input does not verify the empty password")
	}
}

func TestHash_TooLong(t *testing.T) {
	configPath, _ := writeConfig(t)
	secret := strings.Repeat("s", password.MaxLength+1)

	code, _, stderr := run(t, secret+"\n", "hash", "--config", configPath)
	if code != 1 {
		t.Fatalf("Expected exit 1, got %d", code)
	}
	if strings.Contains(stderr, secret) {
		t.Error("error output contains the plaintext")
	}
}

func TestDump(t *testing.T) {
	configPath, dbPath := writeConfig(t)
	seedUsers(t, dbPath)

	code, stdout, stderr := run(t, "", "dump", "--config", configPath)
	if code != 0 {
		t.Fatalf("dump exited %d: %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("dump must log to stderr only, got stdout %q", stdout)
	}

	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 2 log lines and a summary, got %q", stderr)
	}

	for i, wantSuffix := range []string{
		": name=***; email=***; phone=***; ssn=***; password=***; ip=192.168.0.1",
		": name=***; email=***; phone=***; ssn=***; password=***; ip=10.0.0.7",
	} {
		if !strings.HasPrefix(lines[i], "[HOLBERTON] user_data INFO ") {
			t.Errorf("line %d has unexpected prefix: %q", i, lines[i])
		}
		if !strings.HasSuffix(lines[i], wantSuffix) {
			t.Errorf("line %d = %q, want suffix %q", i, lines[i], wantSuffix)
		}
	}

	for _, leaked := range []string{"bob@dylan.com", "000-12-3456", "bobbycool", "hunter2", "Ann"} {
		if strings.Contains(stderr, leaked) {
			t.Errorf("dump leaked %q", leaked)
		}
	}
	if !strings.HasPrefix(lines[2], "Dumped 2 rows from users (run ") {
		t.Errorf("unexpected summary %q", lines[2])
	}
}

func TestDump_JSONCarriesRunID(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "users.db")
	configPath := writeSQLiteConfig(t, dbPath, 4, "logging:\n  format: json\n")
	seedUsers(t, dbPath)

	code, _, stderr := run(t, "", "dump", "--config", configPath)
	if code != 0 {
		t.Fatalf("dump exited %d: %s", code, stderr)
	}

	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 2 events and a summary, got %q", stderr)
	}

	_, rest, ok := strings.Cut(lines[2], "(run ")
	if !ok {
		t.Fatalf("summary has no run id: %q", lines[2])
	}
	id, _, _ := strings.Cut(rest, ",")
	if _, err := runid.Time(id); err != nil {
		t.Fatalf("summary run id %q does not parse: %v", id, err)
	}

	for i, line := range lines[:2] {
		var event map[string]any
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Fatalf("line %d is not JSON: %q", i, line)
		}
		if event["run_id"] != id {
			t.Errorf("line %d: Expected run_id %q, got %v", i, id, event["run_id"])
		}
		if msg, _ := event["message"].(string); !strings.HasPrefix(msg, "name=***; email=***;") {
			t.Errorf("line %d: message not redacted: %q", i, msg)
		}
	}
	if strings.Contains(stderr, "bob@dylan.com") {
		t.Error("json dump leaked an email address")
	}
}

func TestDump_MissingTable(t *testing.T) {
	configPath, _ := writeConfig(t)

	code, _, stderr := run(t, "", "dump", "--config", configPath)
	if code != 1 {
		t.Fatalf("Expected exit 1 for missing table, got %d", code)
	}
	if !strings.Contains(stderr, "failed to query users") {
		t.Errorf("unexpected error output %q", stderr)
	}
}

func TestPasswd(t *testing.T) {
	configPath, dbPath := writeConfig(t)
	seedUsers(t, dbPath)

	code, _, stderr := run(t, "n3w-secret\n", "passwd", "bob@dylan.com", "--config", configPath)
	if code != 0 {
		t.Fatalf("passwd exited %d: %s", code, stderr)
	}

	driver, err := database.NewDriver(database.Config{ConnectionString: "sqlite://" + dbPath})
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
	ctx := context.Background()
	if err := driver.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer driver.Close()

	repo, err := users.NewRepository(driver, "users")
	if err != nil {
		t.Fatalf("NewRepository failed: %v", err)
	}
	digest, err := repo.PasswordDigest(ctx, "bob@dylan.com")
	if err != nil {
		t.Fatalf("PasswordDigest failed: %v", err)
	}
	if !password.Verify(digest, "n3w-secret") {
		t.Error("stored digest does not verify the new password")
	}

	code, _, stderr = run(t, "x\n", "passwd", "nobody@example.com", "--config", configPath)
	if code != 1 || !strings.Contains(stderr, "user not found") {
		t.Errorf("Expected user not found, got code %d: %q", code, stderr)
	}
}

func TestVerify_StoredDigest(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "users.db")
	configPath := writeSQLiteConfig(t, dbPath, 4, "")
	strongerPath := writeSQLiteConfig(t, dbPath, 5, "")
	seedUsers(t, dbPath)

	if code, _, stderr := run(t, "n3w-secret\n", "passwd", "bob@dylan.com", "--config", configPath); code != 0 {
		t.Fatalf("passwd exited %d: %s", code, stderr)
	}

	tests := []struct {
		name       string
		configPath string
		candidate  string
		email      string
		wantCode   int
		wantOut    string
		wantNotice bool
	}{
		{"match at configured cost", configPath, "n3w-secret", "bob@dylan.com", 0, "match", false},
		{"match below configured cost", strongerPath, "n3w-secret", "bob@dylan.com", 0, "match", true},
		{"wrong password", strongerPath, "old-secret", "bob@dylan.com", 1, "mismatch", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := run(t, tt.candidate+"\n", "verify", "--email", tt.email, "--config", tt.configPath)
			if code != tt.wantCode {
				t.Errorf("Expected exit %d, got %d (%s)", tt.wantCode, code, stderr)
			}
			if strings.TrimSpace(stdout) != tt.wantOut {
				t.Errorf("Expected output %q, got %q", tt.wantOut, stdout)
			}
			if got := strings.Contains(stderr, "run passwd to rehash"); got != tt.wantNotice {
				t.Errorf("rehash notice = %v, want %v (stderr %q)", got, tt.wantNotice, stderr)
			}
		})
	}

	code, _, stderr := run(t, "x\n", "verify", "--email", "nobody@example.com", "--config", configPath)
	if code != 1 || !strings.Contains(stderr, "user not found") {
		t.Errorf("Expected user not found, got code %d: %q", code, stderr)
	}
}

func TestVerify_Arguments(t *testing.T) {
	configPath, _ := writeConfig(t)

	if code, _, stderr := run(t, "x\n", "verify"); code != 1 || !strings.Contains(stderr, "DIGEST argument or --email") {
		t.Errorf("Expected usage error without digest or email, got code %d: %q", code, stderr)
	}
	if code, _, stderr := run(t, "x\n", "verify", "$2a$04$abc", "--email", "a@b.c", "--config", configPath); code != 1 || !strings.Contains(stderr, "not both") {
		t.Errorf("Expected usage error with digest and email, got code %d: %q", code, stderr)
	}
}

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		name string
		db   config.DatabaseConfig
		want string
	}{
		{
			name: "mysql defaults",
			db:   config.DatabaseConfig{Connection: "mysql", Host: "localhost", User: "root", Name: "my_db"},
			want: "mysql://root@tcp(localhost:3306)/my_db",
		},
		{
			name: "mysql with password and port",
			db:   config.DatabaseConfig{Connection: "mysql", Host: "db:3307", User: "app", Password: "pw", Name: "x"},
			want: "mysql://app:pw@tcp(db:3307)/x",
		},
		{
			name: "postgres",
			db:   config.DatabaseConfig{Connection: "postgres", Host: "db:5432", User: "app", Password: "p@ss", Name: "personal"},
			want: "postgres://app:p%40ss@db:5432/personal",
		},
		{
			name: "sqlite",
			db:   config.DatabaseConfig{Connection: "sqlite", Name: "/tmp/users.db"},
			want: "sqlite:///tmp/users.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildConnectionString(tt.db); got != tt.want {
				t.Errorf("buildConnectionString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecute_ExitCodes(t *testing.T) {
	if code := Execute(context.Background(), []string{"dump", "--config", filepath.Join(t.TempDir(), "missing.yaml")}); code != 1 {
		t.Errorf("Expected exit 1 for missing config, got %d", code)
	}
	if code := Execute(context.Background(), []string{"--help"}); code != 0 {
		t.Errorf("Expected exit 0 for --help, got %d", code)
	}
}
