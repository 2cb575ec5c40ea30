package jobs

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/microcosm-cc/bluemonday"
)

// MaxFetchBytes bounds how much of a posting is read.
const MaxFetchBytes = 2 << 20

const userAgent = "Mozilla/5.0 (compatible; ResuMate/1.0; +https://resumate.app)"

// Fetcher downloads a posting and reduces it to plain text.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	policy   *bluemonday.Policy
}

// NewFetcher returns a Fetcher using client, or a client with a 20s timeout when nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Fetcher{
		client:   client,
		maxBytes: MaxFetchBytes,
		policy:   bluemonday.StrictPolicy(),
	}
}

// Fetch GETs rawURL and returns its text. Non-2xx statuses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "" {
		mediaType = http.DetectContentType(body)
		mediaType, _, _ = mime.ParseMediaType(mediaType)
	}

	switch mediaType {
	case "application/pdf":
		return extractPDFText(body)
	case "text/html", "application/xhtml+xml":
		return f.htmlText(body), nil
	default:
		return collapseSpace(string(body)), nil
	}
}

func (f *Fetcher) htmlText(body []byte) string {
	// Block-level tags become line breaks before the policy strips markup.
	spaced := blockTags.Replace(string(body))
	return collapseSpace(html.UnescapeString(f.policy.Sanitize(spaced)))
}

var blockTags = strings.NewReplacer(
	"</p>", "</p>\n",
	"</li>", "</li>\n",
	"</div>", "</div>\n",
	"<br>", "<br>\n",
	"<br/>", "<br/>\n",
	"<br />", "<br />\n",
	"</h1>", "</h1>\n",
	"</h2>", "</h2>\n",
	"</h3>", "</h3>\n",
	"</tr>", "</tr>\n",
)

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return collapseSpace(buf.String()), nil
}

// collapseSpace trims each line, squeezes runs of blanks and drops empty lines.
func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
