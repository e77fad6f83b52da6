package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MrEthical07/tokenauth/keys"
)

const (
	privateKeyFile = "private.key"
	publicKeyFile  = "public.key"
	privateEnvFile = "private_env.txt"
	publicEnvFile  = "public_env.txt"
)

var errKeysExist = errors.New("keys already exist; remove them first to regenerate")

func runKeygen(args []string) error {
	flags := flag.NewFlagSet("keygen", flag.ContinueOnError)
	dir := flags.String("dir", "keys", "output directory")
	bits := flags.Int("bits", keys.DefaultMinBits, "RSA modulus size")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := writeKeys(*dir, *bits); err != nil {
		return err
	}
	fmt.Printf("wrote %s and %s to %s\n", privateKeyFile, publicKeyFile, *dir)
	fmt.Printf("set JWT_PRIVATE_KEY and JWT_PUBLIC_KEY from %s and %s\n", privateEnvFile, publicEnvFile)
	return nil
}

// writeKeys generates a pair into dir. Existing keys are never overwritten.
func writeKeys(dir string, bits int) error {
	for _, name := range []string{privateKeyFile, publicKeyFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		if err == nil {
			return errKeysExist
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	pair, err := keys.Generate(bits)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	files := []struct {
		name string
		data []byte
		mode os.FileMode
	}{
		{privateKeyFile, pair.PrivatePEM, 0o600},
		{publicKeyFile, pair.PublicPEM, 0o644},
		{privateEnvFile, []byte(keys.EscapeForEnv(pair.PrivatePEM) + "\n"), 0o600},
		{publicEnvFile, []byte(keys.EscapeForEnv(pair.PublicPEM) + "\n"), 0o644},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), f.data, f.mode); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}
