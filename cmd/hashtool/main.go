// Command hashtool prints credentials for configs/config.yaml: an argon2id
// password hash, or a new machine token together with its hash.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/KevinKickass/OpenMachineAIO/internal/auth"
)

func main() {
	password := flag.String("password", "", "password to hash")
	token := flag.Bool("token", false, "generate a machine token")
	flag.Parse()

	switch {
	case *token:
		t, hash, err := auth.GenerateMachineToken()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("token: %s\ntoken_hash: %s\n", t, hash)
	case *password != "":
		hash, err := auth.NewPasswordHasher().HashPassword(*password)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("password_hash: %s\n", hash)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
