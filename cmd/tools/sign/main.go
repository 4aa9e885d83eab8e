package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/noah-isme/gateway-demo/internal/signing"
)

// sign prints the canonical string, signature and auth headers for a set of
// key=value parameters. Credentials default to GATEWAY_APP_CODE,
// GATEWAY_SECRET_KEY and GATEWAY_SIGNATURE_TYPE.
// Exit code 0 = ok, 1 = signing failed, 2 = bad usage.
func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type output struct {
	Canonical string              `json:"canonical"`
	Signature string              `json:"signature"`
	Headers   signing.AuthHeaders `json:"headers"`
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(stderr)
	appCode := fs.String("appcode", os.Getenv("GATEWAY_APP_CODE"), "merchant app code")
	secret := fs.String("secret", os.Getenv("GATEWAY_SECRET_KEY"), "shared secret appended before hashing")
	algorithm := fs.String("algorithm", os.Getenv("GATEWAY_SIGNATURE_TYPE"), "MD5 or SHA256")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	params, err := parsePairs(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "sign: %v\n", err)
		return 2
	}
	res, err := signing.Generate(params, signing.Credentials{
		AppCode:   *appCode,
		Secret:    *secret,
		Algorithm: signing.Algorithm(*algorithm),
	})
	if err != nil {
		fmt.Fprintf(stderr, "sign: %v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(output{Canonical: res.Canonical, Signature: res.Signature, Headers: res.Headers}); err != nil {
			fmt.Fprintf(stderr, "sign: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stdout, "canonical: %s\n", res.Canonical)
	fmt.Fprintf(stdout, "signature: %s\n", res.Signature)
	fmt.Fprintf(stdout, "%s: %s\n", signing.HeaderAppCode, res.Headers.AppCode)
	fmt.Fprintf(stdout, "%s: %s\n", signing.HeaderSignature, res.Headers.Signature)
	fmt.Fprintf(stdout, "%s: %s\n", signing.HeaderSignatureType, res.Headers.SignatureType)
	fmt.Fprintf(stdout, "%s: %s\n", signing.HeaderContentType, res.Headers.ContentType)
	return 0
}

// parsePairs splits key=value arguments. Values may contain '='; later keys
// win.
func parsePairs(args []string) (signing.Params, error) {
	if len(args) == 0 {
		return nil, errors.New("no parameters given (usage: sign [flags] key=value ...)")
	}
	params := make(signing.Params, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", arg)
		}
		params[key] = value
	}
	return params, nil
}
