package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

const defaultServerURL = "http://localhost:8420"

func main() {
	var serverURL string
	flag.StringVar(&serverURL, "server", defaultServerURL, "Server URL")
	flag.StringVar(&serverURL, "s", defaultServerURL, "Server URL (short)")
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(1)
	}

	c := &client{base: strings.TrimSuffix(serverURL, "/")}
	args := flag.Args()

	var err error
	switch args[0] {
	case "printers":
		err = c.listPrinters()
	case "connect":
		err = c.connect(args[1:])
	case "disconnect":
		err = c.post("/printer/disconnect", nil)
	case "status":
		err = c.get("/printer/status")
	case "test":
		err = c.post("/printer/test", nil)
	case "test-pattern":
		err = c.post("/printer/test-pattern", nil)
	case "print":
		err = c.print(args[1:])
	case "product":
		err = c.product(args[1:])
	case "history":
		err = c.get("/history")
	case "sequence":
		err = c.get("/sequence")
	case "settings":
		err = c.get("/printer/settings")
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Label Engine CLI

Usage:
  label-cli [flags] <command>

Flags:
  -s, -server <url>    Server URL (default: %s)

Commands:
  printers
    List available printers (USB, spooler queues, serial ports)

  connect [port] [dialect]
    Connect using the saved settings; optionally override the port
    (USB, SPOOLER:<queue> or a serial device) and dialect (ppla, pplb)

  disconnect
    Close the printer connection

  status
    Show connection state

  test
    Query the printer and verify it answers

  test-pattern
    Print a calibration test pattern

  print <product-id> [product-id product-id]
    Print labels for up to three products in one pass

  product add <code> <name> <short-name>
    Register a product; the barcode is assigned automatically

  product list
    List registered products

  history
    Show print history

  sequence
    Show the current barcode sequence number

  settings
    Show the saved printer settings

Examples:
  label-cli printers
  label-cli connect USB pplb
  label-cli connect SPOOLER:ARGOS
  label-cli product add 001 "Torneira Cromada 1/2" "TORNEIRA 1/2"
  label-cli print 1 2 3
  label-cli -s http://localhost:9000 status

`, defaultServerURL)
}

type client struct {
	base string
}

func (c *client) do(method, path string, body any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach server at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s", e.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	printJSON(data)
	return nil
}

func (c *client) get(path string) error { return c.do(http.MethodGet, path, nil) }

func (c *client) post(path string, body any) error {
	return c.do(http.MethodPost, path, body)
}

func (c *client) listPrinters() error {
	return c.get("/printers")
}

func (c *client) connect(args []string) error {
	body := map[string]any{}
	if len(args) > 0 {
		body["port"] = args[0]
	}
	if len(args) > 1 {
		body["dialect"] = args[1]
	}
	if len(body) == 0 {
		return c.post("/printer/connect", nil)
	}
	return c.post("/printer/connect", body)
}

func (c *client) print(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("print needs at least one product id")
	}
	var ids []int64
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid product id %q", a)
		}
		ids = append(ids, id)
	}
	return c.post("/printer/print", map[string]any{"product_ids": ids})
}

func (c *client) product(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("product needs a subcommand: add, list")
	}
	switch args[0] {
	case "add":
		if len(args) != 4 {
			return fmt.Errorf("usage: product add <code> <name> <short-name>")
		}
		return c.post("/products", map[string]string{
			"product_code": args[1],
			"name":         args[2],
			"name_short":   args[3],
		})
	case "list":
		return c.get("/products")
	default:
		return fmt.Errorf("unknown product subcommand: %s", args[0])
	}
}

// printJSON re-indents the server's response for the terminal.
func printJSON(data []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		os.Stdout.Write(data)
		fmt.Println()
		return
	}
	fmt.Println(buf.String())
}
