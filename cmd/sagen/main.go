// AngelaMos | 2026
// main.go

// sagen asks a running booking server to grant Superadmin to an email
// address, authenticating with the shared SA_SECRET. With --hash it
// instead prints an argon2id hash of the secret, suitable for SA_SECRET
// in the server's environment.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/zacanbrcom/auditorium-booking/internal/core"
)

type options struct {
	server  string
	email   string
	secret  string
	hash    bool
	timeout time.Duration
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "sagen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	_ = godotenv.Load()

	var opts options

	flagSet := pflag.NewFlagSet("sagen", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.server, "server", "s", "http://localhost:8000", "base url of the booking server")
	flagSet.StringVarP(&opts.email, "email", "e", "", "email to grant Superadmin (prompted when empty)")
	flagSet.StringVar(&opts.secret, "secret", os.Getenv("SA_SECRET"), "shared superadmin secret (default $SA_SECRET)")
	flagSet.BoolVar(&opts.hash, "hash", false, "print an argon2id hash of the secret and exit")
	flagSet.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if opts.secret == "" {
		return errors.New("no secret: pass --secret or set SA_SECRET")
	}

	if opts.hash {
		encoded, err := core.HashSecret(opts.secret)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, encoded)
		return nil
	}

	if opts.email == "" {
		fmt.Fprint(stdout, "superadmin login email: ")
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read email: %w", err)
		}
		opts.email = strings.TrimSpace(line)
	}
	if opts.email == "" {
		return errors.New("no email given")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := generate(ctx, http.DefaultClient, opts.server, opts.email, opts.secret); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "superadmin %s generated\n", opts.email)
	return nil
}

// generate posts to the superadmin endpoint and treats any 2xx as
// success.
func generate(ctx context.Context, client *http.Client, server, email, secret string) error {
	endpoint := strings.TrimRight(server, "/") +
		"/admin/generate_sa/" + url.PathEscape(email) +
		"/" + url.PathEscape(secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf(
			"server answered %s: %s",
			resp.Status,
			strings.TrimSpace(string(body)),
		)
	}

	return nil
}
