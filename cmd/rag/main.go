// Command rag is the CLI client for the document QA server.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chakrateja70/Agentic-RAG-Chatbot/internal/version"
)

const defaultServer = "http://localhost:8000"

func main() {
	var (
		serverURL = flag.String("server", defaultServer, "server URL")
		token     = flag.String("token", os.Getenv("RAG_TOKEN"), "JWT auth token")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cli := &Client{
		BaseURL:    strings.TrimRight(*serverURL, "/"),
		Token:      *token,
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
	}

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "version":
		err = cmdVersion(rest)
	case "login":
		err = cli.cmdLogin(rest)
	case "upload":
		err = cli.cmdUpload(rest)
	case "query":
		err = cli.cmdQuery(rest)
	case "status":
		err = cli.cmdStatus(rest)
	case "health":
		err = cli.cmdHealth(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `rag — document QA CLI

Usage:
  rag [flags] <command> [args]

Flags:
  --server  <url>    server URL (default: http://localhost:8000)
  --token   <token>  JWT auth token (or $RAG_TOKEN)

Commands:
  version                  print version
  login <user> <pass>      obtain a JWT token
  upload <file> [file...]  upload documents for ingestion
  query <question>         ask a question over the uploaded documents
  status                   show agent mesh status
  health                   check server liveness
`)
}

// --- version ---

func cmdVersion(_ []string) error {
	fmt.Printf("rag %s (commit %s, built %s)\n",
		version.Version, version.Commit, version.BuildDate)
	return nil
}

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// get performs a GET and decodes JSON into v.
func (c *Client) get(path string, v any) error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, v)
}

// postJSON performs a JSON POST and decodes the response into v.
func (c *Client) postJSON(path string, body any, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, v)
}

// do sends req with auth and decodes the JSON response into v.
func (c *Client) do(req *http.Request, v any) error {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if v == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// --- login ---

func (c *Client) cmdLogin(args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: rag login <user> <pass>")
		os.Exit(1)
	}
	var result map[string]string
	err := c.postJSON("/api/auth/login", map[string]string{
		"username": args[0],
		"password": args[1],
	}, &result)
	if err != nil {
		return err
	}
	fmt.Println(result["token"])
	return nil
}

// --- upload ---

func (c *Client) cmdUpload(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: rag upload <file> [file...]")
		os.Exit(1)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		part, err := mw.CreateFormFile("files", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("add %s: %w", path, err)
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/api/upload", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result map[string]any
	if err := c.do(req, &result); err != nil {
		return err
	}
	fmt.Printf("documents: %v\n", result["documents_processed"])
	fmt.Printf("chunks:    %v\n", result["chunks_created"])
	fmt.Printf("vectors:   %v\n", result["vectors_stored"])
	return nil
}

// --- query ---

func (c *Client) cmdQuery(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: rag query <question>")
		os.Exit(1)
	}
	question := strings.Join(args, " ")

	var result map[string]any
	if err := c.postJSON("/api/query", map[string]string{"query": question}, &result); err != nil {
		return err
	}

	if answer, ok := result["answer"].(map[string]any); ok {
		fmt.Println(answer["answer"])
	} else {
		fmt.Println(result["answer"])
	}
	if sources, ok := result["sources"].([]any); ok && len(sources) > 0 {
		fmt.Printf("\nsources: %v\n", sources)
	}
	return nil
}

// --- status ---

func (c *Client) cmdStatus(_ []string) error {
	var result map[string]any
	if err := c.get("/api/status", &result); err != nil {
		return err
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// --- health ---

func (c *Client) cmdHealth(_ []string) error {
	var result map[string]any
	if err := c.get("/api/health", &result); err != nil {
		return err
	}
	fmt.Printf("status:  %v\n", result["status"])
	fmt.Printf("version: %v\n", result["version"])
	return nil
}
