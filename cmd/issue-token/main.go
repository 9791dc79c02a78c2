package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/stemsi/exstem-engine/internal/config"
	"github.com/stemsi/exstem-engine/internal/service"
	"golang.org/x/term"
)

// issue-token signs a bearer token the same way the identity provider does,
// for local testing against a running server.
func main() {
	var (
		userID       int
		role         string
		promptSecret bool
	)
	flag.IntVar(&userID, "user", 0, "User ID to embed in the token")
	flag.StringVar(&role, "role", string(service.RoleStudent), "Role: student or admin")
	flag.BoolVar(&promptSecret, "prompt-secret", false, "Read the signing secret from the terminal instead of JWT_SECRET")
	flag.Parse()

	cfg := config.Load()

	if userID <= 0 {
		fmt.Print("Enter User ID: ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n <= 0 {
			fmt.Fprintln(os.Stderr, "Error: User ID must be a positive number")
			os.Exit(1)
		}
		userID = n
	}

	if promptSecret {
		fmt.Fprint(os.Stderr, "Enter JWT secret: ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error reading secret")
			os.Exit(1)
		}
		if len(secret) == 0 {
			fmt.Fprintln(os.Stderr, "Error: secret is required")
			os.Exit(1)
		}
		cfg.JWTSecret = string(secret)
	}

	token, err := service.NewAuthService(cfg).IssueToken(userID, service.Role(role))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
