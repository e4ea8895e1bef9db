package assembler

import (
	"fmt"
	"strings"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/pkg/apperror"
	"multimodal-rag-be/pkg/rag/prompt"
)

const (
	noEvidenceText = "(no relevant evidence was found)"
	noHistoryText  = "(this is the start of the conversation)"
)

// Budget splits the model's context window. The reserve holds the system prompt,
// template and question; evidence gets up to the cap; history gets the rest.
type Budget struct {
	TotalTokens        int
	PromptReserveRatio float64
	EvidenceCapRatio   float64
}

func (b Budget) Validate() error {
	const op = "assembler.Budget"
	if b.TotalTokens <= 0 {
		return apperror.Configuration(op, "total tokens must be positive")
	}
	if b.PromptReserveRatio <= 0 || b.PromptReserveRatio >= 1 {
		return apperror.Configuration(op, "prompt reserve ratio must be in (0,1)")
	}
	if b.EvidenceCapRatio < 0 || b.PromptReserveRatio+b.EvidenceCapRatio > 1 {
		return apperror.Configuration(op, "evidence cap ratio must be in [0, 1-reserve]")
	}
	return nil
}

func (b Budget) reserve() int {
	return int(float64(b.TotalTokens) * b.PromptReserveRatio)
}

func (b Budget) evidenceCap() int {
	return int(float64(b.TotalTokens) * b.EvidenceCapRatio)
}

type Input struct {
	Prompt   *prompt.Resolved
	Question string
	History  []*entity.ChatMessage     // oldest first
	Evidence []*entity.RetrievalResult // fused score desc
}

type Accounting struct {
	Total         int `json:"total"`
	Reserve       int `json:"reserve"`
	Fixed         int `json:"fixed"`
	EvidenceShare int `json:"evidence_share"`
	HistoryShare  int `json:"history_share"`
	EvidenceUsed  int `json:"evidence_used"`
	HistoryUsed   int `json:"history_used"`
	Used          int `json:"used"`
}

type Context struct {
	SystemPrompt    string
	UserPrompt      string
	History         []*entity.ChatMessage
	Evidence        []*entity.RetrievalResult
	Tokens          Accounting
	DroppedHistory  int // messages
	DroppedEvidence int
}

type IAssembler interface {
	Assemble(in Input) (*Context, error)
}

type Assembler struct {
	budget  Budget
	counter TokenCounter
}

func NewAssembler(budget Budget, counter TokenCounter) (*Assembler, error) {
	if err := budget.Validate(); err != nil {
		return nil, err
	}
	if counter == nil {
		counter = NewEstimateCounter()
	}
	return &Assembler{budget: budget, counter: counter}, nil
}

// Assemble is deterministic: the same input always yields the same context.
func (a *Assembler) Assemble(in Input) (*Context, error) {
	const op = "assembler.Assemble"

	if in.Prompt == nil || in.Prompt.Template == nil {
		return nil, apperror.Configuration(op, "no prompt resolved")
	}

	reserve := a.budget.reserve()
	systemTokens := a.counter.Count(in.Prompt.SystemPrompt)
	if systemTokens > reserve {
		return nil, apperror.Configuration(op, "system prompt needs %d tokens, reserve is %d", systemTokens, reserve)
	}

	// Empty-section fillers are reserved up front so the budget holds whatever is trimmed.
	frame := systemTokens +
		a.counter.Count(in.Prompt.Template.Static()) +
		a.counter.Count(noEvidenceText) +
		a.counter.Count(noHistoryText)
	if frame > reserve {
		return nil, apperror.Configuration(op, "system prompt and template need %d tokens, reserve is %d", frame, reserve)
	}
	fixed := frame + a.counter.Count(in.Question)
	if fixed > reserve {
		return nil, apperror.Validation(op, "question is too long for the context budget")
	}

	evidenceItems := make([]string, len(in.Evidence))
	evidenceCosts := make([]int, len(in.Evidence))
	evidenceNeed := 0
	for i, r := range in.Evidence {
		evidenceItems[i] = formatEvidence(i, r)
		evidenceCosts[i] = a.counter.Count(evidenceItems[i])
		evidenceNeed += evidenceCosts[i]
	}

	evidenceShare := min(evidenceNeed, a.budget.evidenceCap())
	historyShare := a.budget.TotalTokens - reserve - evidenceShare

	// History first: drop the oldest whole turn until it fits.
	turns := splitTurns(in.History)
	turnCosts := make([]int, len(turns))
	historyCost := 0
	for i, turn := range turns {
		for _, m := range turn {
			turnCosts[i] += a.counter.Count(formatHistory(m))
		}
		historyCost += turnCosts[i]
	}
	firstTurn := 0
	droppedHistory := 0
	for historyCost > historyShare && firstTurn < len(turns) {
		historyCost -= turnCosts[firstTurn]
		droppedHistory += len(turns[firstTurn])
		firstTurn++
	}

	// Whatever history left unused is lent to evidence, which loses its weakest items.
	evidenceAllowance := evidenceShare + (historyShare - historyCost)
	keptEvidence := len(in.Evidence)
	evidenceCost := evidenceNeed
	for evidenceCost > evidenceAllowance && keptEvidence > 0 {
		keptEvidence--
		evidenceCost -= evidenceCosts[keptEvidence]
	}

	var kept []*entity.ChatMessage
	for _, turn := range turns[firstTurn:] {
		kept = append(kept, turn...)
	}

	historyText := noHistoryText
	if len(kept) > 0 {
		var sb strings.Builder
		for _, m := range kept {
			sb.WriteString(formatHistory(m))
		}
		historyText = strings.TrimRight(sb.String(), "\n")
	}

	evidenceText := noEvidenceText
	if keptEvidence > 0 {
		evidenceText = strings.TrimRight(strings.Join(evidenceItems[:keptEvidence], ""), "\n")
	}

	userPrompt := in.Prompt.Template.Render(prompt.Values{
		Evidence: evidenceText,
		History:  historyText,
		Question: in.Question,
	})

	return &Context{
		SystemPrompt:    in.Prompt.SystemPrompt,
		UserPrompt:      userPrompt,
		History:         kept,
		Evidence:        in.Evidence[:keptEvidence],
		DroppedHistory:  droppedHistory,
		DroppedEvidence: len(in.Evidence) - keptEvidence,
		Tokens: Accounting{
			Total:         a.budget.TotalTokens,
			Reserve:       reserve,
			Fixed:         fixed,
			EvidenceShare: evidenceShare,
			HistoryShare:  historyShare,
			EvidenceUsed:  evidenceCost,
			HistoryUsed:   historyCost,
			Used:          a.counter.Count(in.Prompt.SystemPrompt) + a.counter.Count(userPrompt),
		},
	}, nil
}

// splitTurns groups an ordered log into turns that each open with a user message.
func splitTurns(history []*entity.ChatMessage) [][]*entity.ChatMessage {
	var turns [][]*entity.ChatMessage
	for _, m := range history {
		if m.Role == constant.ChatMessageRoleUser || len(turns) == 0 {
			turns = append(turns, []*entity.ChatMessage{m})
			continue
		}
		turns[len(turns)-1] = append(turns[len(turns)-1], m)
	}
	return turns
}

func formatHistory(m *entity.ChatMessage) string {
	role := "User"
	if m.Role == constant.ChatMessageRoleAssistant {
		role = "Assistant"
	}
	return role + ": " + m.Chat + "\n"
}

func formatEvidence(i int, r *entity.RetrievalResult) string {
	mods := make([]string, 0, len(r.Modalities))
	for _, m := range r.Modalities {
		mods = append(mods, m.String())
	}
	if len(mods) == 0 {
		mods = append(mods, r.Modality.String())
	}

	source := r.Source.DocumentId
	if source == "" {
		source = r.ChunkId
	}
	if r.Source.Page > 0 {
		source = fmt.Sprintf("%s p.%d", source, r.Source.Page)
	}

	return fmt.Sprintf("[%d] (%s, %s) %s\n", i+1, strings.Join(mods, "+"), source, strings.TrimSpace(r.Content))
}
