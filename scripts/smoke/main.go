// Command smoke exercises a running API: it submits a lead for a fresh
// session, checks the call button flips to callback mode and, when an admin
// password is given, downloads the CSV export.
//
// Usage:
//
//	go run ./scripts/smoke --api=http://localhost:8080 [--password=...]
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	flagAPI      string
	flagPassword string
	flagPhone    string
)

func init() {
	flag.StringVar(&flagAPI, "api", "http://localhost:8080", "API base URL")
	flag.StringVar(&flagPassword, "password", "", "Admin password (or ADMIN_PASSWORD env)")
	flag.StringVar(&flagPhone, "phone", "9876543210", "Phone number to submit")
}

var client = &http.Client{Timeout: 15 * time.Second}

func main() {
	flag.Parse()
	if flagPassword == "" {
		flagPassword = os.Getenv("ADMIN_PASSWORD")
	}
	api := strings.TrimRight(flagAPI, "/")
	sessionID := uuid.NewString()

	failed := false
	check := func(name string, err error) {
		if err != nil {
			failed = true
			fmt.Printf("FAIL  %s: %v\n", name, err)
			return
		}
		fmt.Printf("PASS  %s\n", name)
	}

	check("health", expectStatus(http.MethodGet, api+"/health", "", nil, http.StatusOK, nil))

	var button struct {
		Mode string `json:"mode"`
	}
	headers := map[string]string{"X-Session-Id": sessionID}
	check("call button collects", expectStatus(http.MethodGet, api+"/sessions/call-button", "", headers, http.StatusOK, &button))
	if button.Mode != "collect" {
		check("call button collects", fmt.Errorf("mode %q", button.Mode))
	}

	body := fmt.Sprintf(`{"phone_number":%q,"source":"contact_form","page_url":"/smoke"}`, flagPhone)
	var receipt struct {
		Durability string `json:"durability"`
	}
	check("submit lead", expectStatus(http.MethodPost, api+"/leads", body, headers, http.StatusCreated, &receipt))
	fmt.Printf("      durability=%s\n", receipt.Durability)

	check("call button calls back", expectStatus(http.MethodGet, api+"/sessions/call-button", "", headers, http.StatusOK, &button))
	if button.Mode != "callback" {
		check("call button calls back", fmt.Errorf("mode %q", button.Mode))
	}

	var exists struct {
		Exists bool `json:"exists"`
	}
	check("lead exists", expectStatus(http.MethodGet, api+"/leads/exists?phone="+flagPhone, "", nil, http.StatusOK, &exists))
	if !exists.Exists {
		check("lead exists", fmt.Errorf("exists=false"))
	}

	if flagPassword != "" {
		var login struct {
			Token string `json:"token"`
		}
		payload, _ := json.Marshal(map[string]string{"password": flagPassword})
		check("admin login", expectStatus(http.MethodPost, api+"/admin/login", string(payload), nil, http.StatusOK, &login))
		auth := map[string]string{"Authorization": "Bearer " + login.Token}
		check("admin csv", expectStatus(http.MethodGet, api+"/admin/leads.csv", "", auth, http.StatusOK, nil))
	} else {
		fmt.Println("SKIP  admin export (no password)")
	}

	if failed {
		os.Exit(1)
	}
}

func expectStatus(method, url, body string, headers map[string]string, want int, out any) error {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		return fmt.Errorf("status %d (want %d): %s", resp.StatusCode, want, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
	}
	return nil
}
