package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Quick utility to generate the bcrypt hash for the admin basic-auth account
// Usage: go run scripts/admin_password_hash.go <password>
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/admin_password_hash.go <password>")
		os.Exit(1)
	}
	password := os.Args[1]

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Bcrypt Hash: %s\n", string(hashedPassword))
	fmt.Printf("\nAdd to your environment or .env file:\n")
	fmt.Printf("ADMIN_PASSWORD_HASH='%s'\n", string(hashedPassword))
}
