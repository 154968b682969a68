package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/campus-admin-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// Prints a bcrypt hash for ADMIN_PASSWORD_HASH so the plaintext password
// never has to live in the environment.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── CLI Input ─────────────────────────────────────────────────────
	fmt.Fprintln(os.Stderr, "=== Hash Admin Password ===")

	password, err := readPassword("Enter Password: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error reading password:", err)
		os.Exit(1)
	}
	if len(password) < 8 {
		fmt.Fprintln(os.Stderr, "Error: Password must be at least 8 characters")
		os.Exit(1)
	}
	if len(password) > 72 {
		fmt.Fprintln(os.Stderr, "Error: Password must be at most 72 bytes")
		os.Exit(1)
	}

	if term.IsTerminal(int(syscall.Stdin)) {
		confirm, err := readPassword("Confirm Password: ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error reading password:", err)
			os.Exit(1)
		}
		if confirm != password {
			fmt.Fprintln(os.Stderr, "Error: Passwords do not match")
			os.Exit(1)
		}
	}

	// ─── Hash ──────────────────────────────────────────────────────────
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error hashing password:", err)
		os.Exit(1)
	}

	fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", hash)
}

// readPassword reads without echo from a terminal, or a single line from a pipe.
func readPassword(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
