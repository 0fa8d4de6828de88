// Package transcribe turns uploaded lecture audio or video into text.
// Two backends are supported: the OpenAI Whisper API, and an external
// transcription service reached over HTTP. Provider quality is not this
// package's concern; it only moves bytes and returns a transcript.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client transcribes media files. If serviceURL is set the external HTTP
// service is used; otherwise the Whisper API.
type Client struct {
	api        *openai.Client
	serviceURL string
	httpClient *http.Client
}

// New creates a transcription client. Exactly one backend is chosen at
// construction: serviceURL wins when non-empty.
func New(serviceURL, apiBaseURL, apiKey string) *Client {
	config := openai.DefaultConfig(apiKey)
	if apiBaseURL != "" {
		config.BaseURL = apiBaseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(config),
		serviceURL: serviceURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Transcribe converts the media stream into transcript text. filename is
// used for format detection by both backends.
func (c *Client) Transcribe(ctx context.Context, filename string, r io.Reader) (string, error) {
	if c.serviceURL != "" {
		return c.transcribeExternal(ctx, filename, r)
	}
	return c.transcribeWhisper(ctx, filename, r)
}

func (c *Client) transcribeWhisper(ctx context.Context, filename string, r io.Reader) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   r,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return resp.Text, nil
}

// transcribeExternal posts the file as multipart form data and accepts
// either {"text": ...} or {"transcript": ...} in the response.
func (c *Client) transcribeExternal(ctx context.Context, filename string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL, pr)
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call transcription service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("transcription service returned %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Text       string `json:"text"`
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	transcript := payload.Text
	if transcript == "" {
		transcript = payload.Transcript
	}
	if transcript == "" {
		return "", fmt.Errorf("transcription service returned no transcript")
	}
	return transcript, nil
}
