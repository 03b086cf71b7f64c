package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// provider-stub answers every supported provider wire protocol with
// deterministic content, so the CLI can run end to end without real API
// keys. Point any backend's base URL at this process.

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type geminiRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

type anthropicRequest struct {
	System   string `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "stub-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8082"
	}
	var latency time.Duration
	if v := strings.TrimSpace(os.Getenv("LATENCY")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			latency = d
		}
	}
	failStatus := 0
	if v := strings.TrimSpace(os.Getenv("FAIL_STATUS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			failStatus = n
		}
	}

	// intercept applies the shared latency and failure knobs before a
	// handler produces its canned answer.
	intercept := func(w http.ResponseWriter) bool {
		if latency > 0 {
			time.Sleep(latency)
		}
		if failStatus != 0 {
			http.Error(w, "stub failure", failStatus)
			return false
		}
		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})

	chat := func(w http.ResponseWriter, r *http.Request) {
		if !intercept(w) {
			return
		}
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := ""
		if n := len(req.Messages); n > 0 {
			prompt = req.Messages[n-1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply(prompt)}},
			},
		})
	}
	mux.HandleFunc("/v1/chat/completions", chat)
	mux.HandleFunc("/openai/deployments/{deployment}/chat/completions", chat)

	mux.HandleFunc("/v1beta/models/{model}", func(w http.ResponseWriter, r *http.Request) {
		if !intercept(w) {
			return
		}
		defer r.Body.Close()
		var req geminiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := ""
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			prompt = req.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": reply(prompt)}}}},
			},
		})
	})

	mux.HandleFunc("/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		if !intercept(w) {
			return
		}
		defer r.Body.Close()
		var req anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := req.System
		if len(req.Messages) > 0 {
			prompt += "\n" + req.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": reply(prompt)}},
		})
	})

	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		if !intercept(w) {
			return
		}
		defer r.Body.Close()
		var req ollamaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"response": reply(req.Prompt)})
	})

	log.Printf("provider-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

// reply keys the canned answer on the request so summaries, topic lists and
// insight queries each get a plausible shape back.
func reply(prompt string) string {
	switch {
	case strings.Contains(prompt, "concise summary"):
		return "Stub summary: the document states its purpose, lists its main points and closes with next steps."
	case strings.Contains(prompt, "key topics"):
		return "- architecture\n- deployment\n- operations"
	default:
		return "Stub insight: the provided documents answer the query directly; see the cited sections."
	}
}
