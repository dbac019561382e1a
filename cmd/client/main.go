// Command client is the reference client CLI described in
// SPEC_FULL.md §4.7: it chunks a file, checks/registers each chunk
// with the meta service, uploads chunk bodies directly to the
// assigned storage nodes, and commits the file record. It exists only
// to exercise the meta service's wire contract end to end; it is not
// itself part of this module's scope.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/distrofs/meta/internal/config"
)

type apiClient struct {
	metaAddr string
	http     *http.Client
}

func newAPIClient(metaAddr string) *apiClient {
	return &apiClient{metaAddr: strings.TrimRight(metaAddr, "/"), http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *apiClient) postJSON(path string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpResp, err := c.http.Post(c.metaAddr+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request to %s: %w", path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(httpResp.Body).Decode(&apiErr)
		return fmt.Errorf("%s: %d %s", path, httpResp.StatusCode, apiErr.Detail)
	}
	if resp == nil {
		return nil
	}
	return json.NewDecoder(httpResp.Body).Decode(resp)
}

func (c *apiClient) getJSON(path string, resp any) error {
	httpResp, err := c.http.Get(c.metaAddr + path)
	if err != nil {
		return fmt.Errorf("request to %s: %w", path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(httpResp.Body).Decode(&apiErr)
		return fmt.Errorf("%s: %d %s", path, httpResp.StatusCode, apiErr.Detail)
	}
	return json.NewDecoder(httpResp.Body).Decode(resp)
}

func main() {
	root := &cobra.Command{
		Use:   "client",
		Short: "Reference client for the DistroFS meta service",
	}

	root.AddCommand(&cobra.Command{
		Use:   "put <file> <name>",
		Short: "Chunk, upload, and commit a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(args[0], args[1])
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "get <name> <output>",
		Short: "Fetch a file by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args[0], args[1])
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPut(filePath, fileName string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	c := newAPIClient(cfg.MetaAddr)

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}
	chunks := splitFile(data)

	var fingerprints []string
	for _, ch := range chunks {
		fingerprints = append(fingerprints, ch.fingerprint)

		var checkResp struct {
			Exists    bool     `json:"exists"`
			Locations []string `json:"locations"`
		}
		if err := c.postJSON("/chunk/check", map[string]string{"fingerprint": ch.fingerprint}, &checkResp); err != nil {
			return err
		}
		if checkResp.Exists {
			continue
		}

		var registerResp struct {
			AssignedNodes []string `json:"assigned_nodes"`
		}
		if err := c.postJSON("/chunk/register", map[string]string{"fingerprint": ch.fingerprint}, &registerResp); err != nil {
			return err
		}

		for _, node := range registerResp.AssignedNodes {
			if err := uploadChunk(node, ch); err != nil {
				return fmt.Errorf("upload chunk %s to %s: %w", ch.fingerprint, node, err)
			}
		}
	}

	var commitResp struct {
		Status string `json:"status"`
	}
	if err := c.postJSON("/file/commit", map[string]any{"file_name": fileName, "chunks": fingerprints}, &commitResp); err != nil {
		return err
	}

	fmt.Printf("committed %s as %d chunk(s)\n", fileName, len(chunks))
	return nil
}

func runGet(fileName, outputPath string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	c := newAPIClient(cfg.MetaAddr)

	var fileResp struct {
		Chunks []struct {
			Fingerprint string   `json:"fingerprint"`
			Locations   []string `json:"locations"`
		} `json:"chunks"`
	}
	if err := c.getJSON("/file/"+fileName, &fileResp); err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outputPath, err)
	}
	defer out.Close()

	for _, item := range fileResp.Chunks {
		if len(item.Locations) == 0 {
			return fmt.Errorf("chunk %s has no alive replica", item.Fingerprint)
		}
		if err := downloadChunk(item.Locations[0], item.Fingerprint, out); err != nil {
			return fmt.Errorf("download chunk %s from %s: %w", item.Fingerprint, item.Locations[0], err)
		}
	}

	fmt.Printf("wrote %s (%d chunk(s))\n", outputPath, len(fileResp.Chunks))
	return nil
}

// uploadChunk and downloadChunk address storage nodes directly by
// node ID, used as the HTTP address as-is (prefixed with http:// unless
// it already carries a scheme). No storage port is appended, so the
// node ID must already be a reachable host:port or be resolvable by
// the surrounding deployment.
func uploadChunk(node string, ch chunk) error {
	req, err := http.NewRequest(http.MethodPut, storageNodeURL(node)+"/chunk/"+ch.fingerprint, bytes.NewReader(ch.data))
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("storage node returned %d", resp.StatusCode)
	}
	return nil
}

func downloadChunk(node, fingerprint string, w io.Writer) error {
	resp, err := http.Get(storageNodeURL(node) + "/chunk/" + fingerprint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("storage node returned %d", resp.StatusCode)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func storageNodeURL(node string) string {
	if strings.HasPrefix(node, "http://") || strings.HasPrefix(node, "https://") {
		return node
	}
	return "http://" + node
}
