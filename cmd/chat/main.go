package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"multimodal-rag-be/internal/dto"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

var (
	cfg struct {
		Server    string   `help:"Base URL of the REST server" default:"http://localhost:3000"`
		ClientId  string   `help:"Client whose documents are searched" default:"default"`
		Token     string   `help:"Bearer token when the server has JWT_SECRET set" default:""`
		SessionId string   `help:"Continue an existing session" default:""`
		Modality  []string `help:"Restrict retrieval to these modalities (text, image)"`
	}
)

func main() {
	// Parse inputs
	_ = kong.Parse(&cfg)
	ctx := context.Background()

	sessionId := uuid.Nil
	if cfg.SessionId != "" {
		id, err := uuid.Parse(cfg.SessionId)
		if err != nil {
			color.Red("invalid --session-id: %v", err)
			os.Exit(1)
		}
		sessionId = id
	}

	color.Cyan("Connected to %s as %s. Empty line or Ctrl-D exits.", cfg.Server, cfg.ClientId)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		line, err := reader.ReadString('\n')
		question := strings.TrimSpace(line)
		if question == "" || err != nil {
			return
		}

		res, err := ask(ctx, sessionId, question)
		if err != nil {
			color.Red("\n%v", err)
			continue
		}
		sessionId = res.SessionId
		printSummary(res)
	}
}

func ask(ctx context.Context, sessionId uuid.UUID, question string) (*dto.TurnResponse, error) {
	body, err := json.Marshal(dto.QueryRequest{
		SessionId:    sessionId,
		ClientId:     cfg.ClientId,
		Question:     question,
		ModalityHint: cfg.Modality,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(cfg.Server, "/")+"/api/chat/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	fmt.Print(color.GreenString("Assistant: "))
	return readEvents(resp.Body)
}

// readEvents prints chunks as they arrive and returns the final turn.
func readEvents(r io.Reader) (*dto.TurnResponse, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := []byte(strings.TrimPrefix(line, "data: "))
			switch event {
			case dto.StreamEventChunk:
				var chunk dto.StreamChunk
				if err := json.Unmarshal(data, &chunk); err != nil {
					return nil, err
				}
				fmt.Print(chunk.Text)
			case dto.StreamEventDone:
				var res dto.TurnResponse
				if err := json.Unmarshal(data, &res); err != nil {
					return nil, err
				}
				fmt.Println()
				return &res, nil
			case dto.StreamEventError:
				var streamErr dto.StreamError
				if err := json.Unmarshal(data, &streamErr); err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("%s: %s", streamErr.ErrorKind, streamErr.Message)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.ErrUnexpectedEOF
}

func printSummary(res *dto.TurnResponse) {
	faint := color.New(color.Faint)

	for i, e := range res.Evidence {
		faint.Printf("  [%d] %s %s p.%d (%s, fused %.3f)\n", i+1, e.Source.DocumentId, e.ChunkId, e.Source.Page, strings.Join(e.Modalities, "+"), e.FusedScore)
	}
	for _, d := range res.Degraded {
		color.Yellow("  degraded: %s %s (%s)", d.Modality, d.Phase, d.Reason)
	}
	for _, w := range res.Warnings {
		color.Yellow("  warning: %s", w.Message)
	}
	if res.DefaultPromptUsed {
		faint.Println("  default prompt in use")
	}
	faint.Printf("  session %s, %d ms, %d/%d tokens\n", res.SessionId, res.Timing.TotalMs, res.Tokens.Used, res.Tokens.Total)
}
