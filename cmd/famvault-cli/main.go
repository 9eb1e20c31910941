// famvault-cli is a command-line client for a famvaultd service.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/famvault/famvault/config"
	"github.com/famvault/famvault/internal/keyvault"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	apiURL := "http://127.0.0.1:8787"
	dataDir := config.DefaultDataDir()

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--api" && len(args) > 1:
			apiURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--api="):
			apiURL = args[0][len("--api="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	c := &client{
		baseURL:   strings.TrimRight(apiURL, "/"),
		tokenFile: filepath.Join(dataDir, "cli-token"),
		http:      &http.Client{Timeout: 90 * time.Second},
	}
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "register":
		cmdRegister(c, cmdArgs)
	case "login":
		cmdLogin(c, cmdArgs)
	case "logout":
		cmdLogout(c)
	case "whoami":
		cmdWhoami(c)
	case "family":
		cmdFamily(c)
	case "add-dependent":
		cmdAddDependent(c, cmdArgs)
	case "add-guardian":
		cmdAddGuardian(c, cmdArgs)
	case "resolve":
		cmdResolve(c, cmdArgs)
	case "send":
		cmdSend(c, cmdArgs)
	case "history":
		cmdHistory(c, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fatal("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: famvault-cli [global flags] <command> [args]

Global flags:
  --api <url>         API endpoint (default: http://127.0.0.1:8787)
  --datadir <path>    Data directory for the cached session token

Commands:
  register <email> <name> [--new-mnemonic]
                                    Register as a guardian; with
                                    --new-mnemonic, derive the wallet from
                                    a freshly generated recovery phrase
  login <email-or-name>             Log in, cache the session token
  logout                            Revoke and forget the session
  whoami                            Show the logged-in member and balances
  family                            Show guardians and dependents
  add-dependent <name>              Create a dependent (guardian only)
  add-guardian <email> <name>       Link a co-guardian (guardian only)
  resolve <reference>               Resolve a member reference to an address
  send <native|secondary> <dest> <amount>
                                    Transfer funds (asks for your password)
  history [limit]                   List recent transfers
`)
}

// ── HTTP helper ─────────────────────────────────────────────────────────

type client struct {
	baseURL   string
	tokenFile string
	http      *http.Client
}

func (c *client) token() string {
	data, err := os.ReadFile(c.tokenFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (c *client) saveToken(token string) {
	if err := os.MkdirAll(filepath.Dir(c.tokenFile), 0o700); err != nil {
		fatal("saving token: %v", err)
	}
	if err := os.WriteFile(c.tokenFile, []byte(token), 0o600); err != nil {
		fatal("saving token: %v", err)
	}
}

func (c *client) clearToken() {
	os.Remove(c.tokenFile)
}

// call sends one request and decodes the JSON response. Non-2xx
// responses are reported with the server's error message and exit.
func (c *client) call(method, path string, body interface{}) map[string]interface{} {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			fatal("encoding request: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		fatal("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatal("calling %s: %v", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal("reading response: %v", err)
	}
	var decoded map[string]interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			fatal("unexpected response: %s", data)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := decoded["message"].(string)
		if msg == "" {
			msg = resp.Status
		}
		fatal("%s", msg)
	}
	return decoded
}

func (c *client) get(path string) map[string]interface{} {
	return c.call(http.MethodGet, path, nil)
}

func (c *client) post(path string, body interface{}) map[string]interface{} {
	return c.call(http.MethodPost, path, body)
}

// ── Commands ────────────────────────────────────────────────────────────

func cmdRegister(c *client, args []string) {
	withMnemonic := false
	rest := args[:0]
	for _, a := range args {
		if a == "--new-mnemonic" {
			withMnemonic = true
			continue
		}
		rest = append(rest, a)
	}
	if len(rest) != 2 {
		fatal("usage: register <email> <name> [--new-mnemonic]")
	}

	payload := map[string]string{"email": rest[0], "name": rest[1]}
	if withMnemonic {
		phrase, err := keyvault.GenerateMnemonic()
		if err != nil {
			fatal("generating mnemonic: %v", err)
		}
		fmt.Fprintln(os.Stderr, "Recovery phrase (write it down, it is shown only once):")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "  "+phrase)
		fmt.Fprintln(os.Stderr)
		payload["mnemonic"] = phrase
	}
	payload["password"] = promptNewPassword()

	body := c.post("/api/register", payload)
	fmt.Printf("Registered guardian %s\n", body["name"])
	fmt.Printf("Wallet address: %s\n", body["address"])
}

func cmdLogin(c *client, args []string) {
	if len(args) != 1 {
		fatal("usage: login <email-or-name>")
	}
	password := promptPassword("Password: ")
	body := c.post("/api/login", map[string]string{
		"reference": args[0], "password": password,
	})
	token, _ := body["token"].(string)
	if token == "" {
		fatal("no session token in response")
	}
	c.saveToken(token)
	member := body["member"].(map[string]interface{})
	fmt.Printf("Logged in as %s (%s)\n", member["name"], member["role"])
}

func cmdLogout(c *client) {
	if c.token() == "" {
		fatal("not logged in")
	}
	c.post("/api/logout", nil)
	c.clearToken()
	fmt.Println("Logged out")
}

func cmdWhoami(c *client) {
	body := c.get("/api/wallet")
	member := body["member"].(map[string]interface{})
	fmt.Printf("%s (%s)\n", member["name"], member["role"])
	fmt.Printf("Address: %s\n", body["address"])
	if balances, ok := body["balances"].([]interface{}); ok {
		for _, b := range balances {
			bal := b.(map[string]interface{})
			fmt.Printf("  %-6v %v\n", bal["symbol"], bal["amount"])
		}
	}
}

func cmdFamily(c *client) {
	body := c.get("/api/family")
	printMembers := func(label string, raw interface{}) {
		members, _ := raw.([]interface{})
		fmt.Printf("%s (%d):\n", label, len(members))
		for _, m := range members {
			member := m.(map[string]interface{})
			line := fmt.Sprintf("  %v", member["name"])
			if email, ok := member["email"].(string); ok && email != "" {
				line += fmt.Sprintf(" <%s>", email)
			}
			fmt.Printf("%s  %v\n", line, member["address"])
		}
	}
	printMembers("Guardians", body["guardians"])
	printMembers("Dependents", body["dependents"])
}

func cmdAddDependent(c *client, args []string) {
	if len(args) != 1 {
		fatal("usage: add-dependent <name>")
	}
	password := promptNewPassword()
	body := c.post("/api/family/dependents", map[string]string{
		"name": args[0], "password": password,
	})
	fmt.Printf("Dependent %s added\n", body["name"])
	fmt.Printf("Wallet address: %s\n", body["address"])
}

func cmdAddGuardian(c *client, args []string) {
	if len(args) != 2 {
		fatal("usage: add-guardian <email> <name>")
	}
	password := promptNewPassword()
	body := c.post("/api/family/guardians", map[string]string{
		"email": args[0], "name": args[1], "password": password,
	})
	fmt.Printf("Co-guardian %s linked\n", body["name"])
}

func cmdResolve(c *client, args []string) {
	if len(args) != 1 {
		fatal("usage: resolve <reference>")
	}
	body := c.post("/api/resolve", map[string]string{"reference": args[0]})
	fmt.Println(body["address"])
}

func cmdSend(c *client, args []string) {
	if len(args) != 3 {
		fatal("usage: send <native|secondary> <destination> <amount>")
	}
	kind, dest, amount := args[0], args[1], args[2]
	password := promptPassword("Confirm with your password: ")

	body := c.post("/api/transfer/"+kind, map[string]string{
		"destination": dest, "amount": amount, "password": password,
	})
	status, _ := body["status"].(string)
	switch status {
	case "insufficient":
		fmt.Printf("Insufficient %v balance\n", body["short_asset"])
	default:
		fmt.Printf("Status: %s\n", status)
		if hash, ok := body["tx_hash"].(string); ok {
			fmt.Printf("Tx: %s\n", hash)
		}
	}
}

func cmdHistory(c *client, args []string) {
	path := "/api/transfers"
	if len(args) > 0 {
		path += "?limit=" + args[0]
	}
	body := c.get(path)
	transfers, _ := body["transfers"].([]interface{})
	if len(transfers) == 0 {
		fmt.Println("No transfers")
		return
	}
	for _, t := range transfers {
		rec := t.(map[string]interface{})
		fmt.Printf("%v  %-12v %v %v  %v -> %v\n",
			rec["timestamp"], rec["status"], rec["amount"], rec["token"],
			rec["from"], rec["to"])
	}
}

// ── Password prompts ────────────────────────────────────────────────────

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		fatal("reading password: %v", err)
	}
	return string(password)
}

func promptNewPassword() string {
	first := promptPassword("New password (6-20 chars): ")
	second := promptPassword("Repeat password: ")
	if first != second {
		fatal("passwords do not match")
	}
	return first
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
