package mockapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"google.golang.org/genai"

	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/grid"
)

// TextAI corrects and conjugates sentences for the AI endpoints.
type TextAI interface {
	Correct(ctx context.Context, sentence string) (string, error)
	// Conjugate maps each base form to its first person singular form in
	// tense. Words it cannot conjugate are left out of the result.
	Conjugate(ctx context.Context, sentence string, bases []string, tense grid.Tense) (map[string]string, error)
}

type correctBody struct {
	Sentence string `json:"sentence"`
}

type conjugateBody struct {
	Sentence  string   `json:"sentence"`
	BaseForms []string `json:"base_forms"`
	Tense     string   `json:"tense"`
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var req correctBody
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Sentence) == "" {
		writeError(w, http.StatusBadRequest, "Sentence is required")
		return
	}
	corrected, err := s.ai.Correct(r.Context(), req.Sentence)
	if err != nil {
		s.log.Warn("correct failed", "err", err)
		writeError(w, http.StatusBadGateway, "AI service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, client.CorrectResponse{Corrected: corrected, Original: req.Sentence})
}

func (s *Server) handleConjugate(w http.ResponseWriter, r *http.Request) {
	var req conjugateBody
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	tense, ok := grid.ParseTense(req.Tense)
	if !ok {
		writeError(w, http.StatusBadRequest, "Tense must be one of presente, passato, futuro")
		return
	}
	if len(req.BaseForms) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	forms, err := s.ai.Conjugate(r.Context(), req.Sentence, req.BaseForms, tense)
	if err != nil {
		s.log.Warn("conjugate failed", "err", err)
		writeError(w, http.StatusBadGateway, "AI service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, forms)
}

// Dictionary is a deterministic TextAI for Italian regular verbs and a few
// common irregular ones.
type Dictionary struct{}

// Correct normalizes spacing, capitalizes the first letter and ends the
// sentence with a full stop.
func (Dictionary) Correct(_ context.Context, sentence string) (string, error) {
	s := strings.Join(strings.Fields(sentence), " ")
	if s == "" {
		return "", nil
	}
	first, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(first)) + s[size:]
	if !strings.ContainsAny(s[len(s)-1:], ".!?") {
		s += "."
	}
	return s, nil
}

func (Dictionary) Conjugate(_ context.Context, _ string, bases []string, tense grid.Tense) (map[string]string, error) {
	out := make(map[string]string, len(bases))
	for _, b := range bases {
		if form, ok := conjugate(strings.ToLower(strings.TrimSpace(b)), tense); ok {
			out[b] = form
		}
	}
	return out, nil
}

var irregular = map[string]map[grid.Tense]string{
	"essere":  {grid.TensePresent: "sono", grid.TensePast: "sono stato", grid.TenseFuture: "sarò"},
	"avere":   {grid.TensePresent: "ho", grid.TensePast: "ho avuto", grid.TenseFuture: "avrò"},
	"andare":  {grid.TensePresent: "vado", grid.TensePast: "sono andato", grid.TenseFuture: "andrò"},
	"fare":    {grid.TensePresent: "faccio", grid.TensePast: "ho fatto", grid.TenseFuture: "farò"},
	"volere":  {grid.TensePresent: "voglio", grid.TensePast: "ho voluto", grid.TenseFuture: "vorrò"},
	"bere":    {grid.TensePresent: "bevo", grid.TensePast: "ho bevuto", grid.TenseFuture: "berrò"},
	"leggere": {grid.TensePresent: "leggo", grid.TensePast: "ho letto", grid.TenseFuture: "leggerò"},
}

func conjugate(base string, tense grid.Tense) (string, bool) {
	if forms, ok := irregular[base]; ok {
		return forms[tense], true
	}
	if len(base) < 4 {
		return "", false
	}
	stem, ending := base[:len(base)-3], base[len(base)-3:]
	switch ending {
	case "are", "ere", "ire":
	default:
		return "", false
	}
	switch tense {
	case grid.TensePresent:
		return stem + "o", true
	case grid.TensePast:
		participle := map[string]string{"are": "ato", "ere": "uto", "ire": "ito"}[ending]
		return "ho " + stem + participle, true
	case grid.TenseFuture:
		if ending == "ire" {
			return stem + "irò", true
		}
		// mangiare -> mangerò, giocare -> giocherò
		switch {
		case ending == "are" && (strings.HasSuffix(stem, "ci") || strings.HasSuffix(stem, "gi")):
			stem = stem[:len(stem)-1]
		case ending == "are" && (strings.HasSuffix(stem, "c") || strings.HasSuffix(stem, "g")):
			stem += "h"
		}
		return stem + "erò", true
	}
	return "", false
}

// DefaultGeminiModel is used when NewGemini gets no model name.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini is a TextAI backed by the Gemini API.
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a Gemini client for the API key.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: c, modelName: model}, nil
}

const correctPrompt = `Correggi la grammatica di questa frase italiana composta da una persona che usa la comunicazione aumentativa.
Mantieni il significato e le parole quando possibile.
Rispondi SOLO con JSON: {"corrected_sentence": "..."}

Frase: %s`

const conjugatePrompt = `Coniuga ciascun verbo all'infinito nel tempo %s, prima persona singolare, nel contesto della frase "%s".
Verbi: %s
Rispondi SOLO con un oggetto JSON che mappa ogni infinito alla forma coniugata. Ometti le parole che non sono verbi.`

func (g *Gemini) generate(ctx context.Context, prompt string, out any) error {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.1)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return fmt.Errorf("empty gemini response")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("parse gemini JSON: %w", err)
	}
	return nil
}

func (g *Gemini) Correct(ctx context.Context, sentence string) (string, error) {
	var result client.CorrectResponse
	if err := g.generate(ctx, fmt.Sprintf(correctPrompt, sentence), &result); err != nil {
		return "", err
	}
	return result.Corrected, nil
}

func (g *Gemini) Conjugate(ctx context.Context, sentence string, bases []string, tense grid.Tense) (map[string]string, error) {
	forms := map[string]string{}
	prompt := fmt.Sprintf(conjugatePrompt, tense, sentence, strings.Join(bases, ", "))
	if err := g.generate(ctx, prompt, &forms); err != nil {
		return nil, err
	}
	return forms, nil
}
