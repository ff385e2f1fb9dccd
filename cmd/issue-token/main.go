package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/result-portal/internal/config"
	"github.com/stemsi/result-portal/internal/service"
	"golang.org/x/term"
)

func main() {
	var (
		studentID    string
		admin        string
		promptSecret bool
	)
	flag.StringVar(&studentID, "student", "", "Issue a student token for this student id")
	flag.StringVar(&admin, "admin", "", "Issue an admin token for this operator name")
	flag.BoolVar(&promptSecret, "prompt-secret", false, "Read the signing secret from the terminal instead of JWT_SECRET")
	flag.Parse()

	if (studentID == "") == (admin == "") {
		fmt.Fprintln(os.Stderr, "Error: exactly one of -student or -admin is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if promptSecret {
		fmt.Fprint(os.Stderr, "Enter JWT secret: ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error reading secret:", err)
			os.Exit(1)
		}
		cfg.JWTSecret = strings.TrimSpace(string(secret))
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "Error: JWT secret is empty")
		os.Exit(1)
	}

	auth := service.NewAuthService(cfg)

	var (
		token string
		err   error
	)
	if studentID != "" {
		token, err = auth.IssueStudentToken(studentID)
	} else {
		token, err = auth.IssueAdminToken(admin)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error issuing token:", err)
		os.Exit(1)
	}

	// Piped output stays a bare token for scripts.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(token)
		return
	}

	fmt.Printf("Token (valid for %s):\n\n%s\n\n", cfg.JWTExpiry, token)
	fmt.Println("Use it as: Authorization: Bearer <token>")
}
