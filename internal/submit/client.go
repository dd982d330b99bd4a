package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
)

// GeneratePath is the PDF service endpoint.
const GeneratePath = "/generate-pdf"

// ProductsField holds the JSON-encoded product list in the multipart body.
const ProductsField = "products"

// ErrGeneration is returned for any non-2xx response from the PDF service.
var ErrGeneration = errors.New("pdf generation error")

// File is an uploaded file forwarded to the PDF service (e.g. the logo).
type File struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// Document is the binary body returned by the PDF service.
type Document struct {
	ContentType string
	Body        []byte
}

// Client posts invoice submissions to the PDF service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the service at baseURL. A nil httpClient
// uses a client without timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Generate sends the multipart body and returns the PDF document.
func (c *Client) Generate(ctx context.Context, body []byte, contentType string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+GeneratePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", GeneratePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrGeneration
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return &Document{ContentType: resp.Header.Get("Content-Type"), Body: data}, nil
}

// EncodeMultipart writes the native form fields, the files and the products
// field into a multipart body. Field order is deterministic.
func EncodeMultipart(fields url.Values, files []File, products []Product) ([]byte, string, error) {
	payload, err := json.Marshal(products)
	if err != nil {
		return nil, "", fmt.Errorf("encode products: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == ProductsField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range fields[k] {
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", k, err)
			}
		}
	}
	for _, f := range files {
		part, err := mw.CreatePart(filePartHeader(f))
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", fmt.Errorf("write file part %s: %w", f.Field, err)
		}
	}
	if err := mw.WriteField(ProductsField, string(payload)); err != nil {
		return nil, "", fmt.Errorf("write products: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(f File) textproto.MIMEHeader {
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.Filename))},
		"Content-Type": {ct},
	}
}
