package domain

import "time"

// Quality is the per-tool verdict triplet written by the quality gate.
type Quality struct {
	Approved   bool    `json:"approved"`
	Score      float64 `json:"score"`
	RetryCount int     `json:"retry_count"`
}

// State is the accumulated enrichment state for one request. Nodes never
// write it directly: they emit Deltas, and a single goroutine applies them
// through Merge.
type State struct {
	Word           string   `json:"word"`
	UserID         string   `json:"user_id"`
	RequestID      string   `json:"request_id"`
	SourceLanguage Language `json:"source_language"`
	TargetLanguage Language `json:"target_language"`

	Validated        bool         `json:"validated"`
	IssueMessage     string       `json:"issue_message,omitempty"`
	IssueSuggestions []string     `json:"issue_suggestions,omitempty"`
	Definitions      []string     `json:"definitions,omitempty"`
	SourcePOS        PartOfSpeech `json:"source_part_of_speech,omitempty"`
	SourceArticle    string       `json:"source_article,omitempty"`
	SourceInfo       string       `json:"source_additional_info,omitempty"`

	ExistingItems []ExistingItem `json:"existing_items,omitempty"`

	TargetWord       string       `json:"target_word,omitempty"`
	TargetPOS        PartOfSpeech `json:"target_part_of_speech,omitempty"`
	TargetArticle    string       `json:"target_article,omitempty"`
	TargetInfo       string       `json:"target_additional_info,omitempty"`
	TargetPluralForm string       `json:"target_plural_form,omitempty"`
	EnglishWord      string       `json:"english_word,omitempty"`

	Media          *Media          `json:"media,omitempty"`
	SearchQuery    []string        `json:"search_query,omitempty"`
	MediaReused    bool            `json:"media_reused,omitempty"`
	Examples       []Example       `json:"examples,omitempty"`
	Synonyms       []Synonym       `json:"synonyms,omitempty"`
	Syllables      []string        `json:"syllables,omitempty"`
	PhoneticGuide  string          `json:"phonetic_guide,omitempty"`
	Conjugation    *Conjugation    `json:"conjugation,omitempty"`
	Pronunciations *Pronunciations `json:"pronunciations,omitempty"`

	ParallelTasks    []ToolName           `json:"parallel_tasks_to_execute,omitempty"`
	ParallelComplete bool                 `json:"parallel_tasks_complete,omitempty"`
	Quality          map[ToolName]Quality `json:"quality,omitempty"`
	Completed        map[ToolName]bool    `json:"completed_parallel_tasks,omitempty"`

	OverallScore       float64 `json:"overall_quality_score,omitempty"`
	GatesPassed        int     `json:"quality_gates_passed,omitempty"`
	GatesFailed        int     `json:"quality_gates_failed,omitempty"`
	ProcessingComplete bool    `json:"processing_complete,omitempty"`
}

// NewState seeds the state from an accepted request.
func NewState(req EnrichmentRequest) *State {
	return &State{
		Word:           req.Word,
		UserID:         req.UserID,
		RequestID:      req.RequestID,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Quality:        make(map[ToolName]Quality),
		Completed:      make(map[ToolName]bool),
	}
}

// Delta is a node's contribution to the state. Nil fields leave the state
// untouched; Completed and Quality entries accumulate.
type Delta struct {
	// Word rewrites the working word to its classified base form.
	Word             *string        `json:"word,omitempty"`
	SourceLanguage   *Language      `json:"source_language,omitempty"`
	Validated        *bool          `json:"validated,omitempty"`
	IssueMessage     *string        `json:"issue_message,omitempty"`
	IssueSuggestions []string       `json:"issue_suggestions,omitempty"`
	Definitions      []string       `json:"definitions,omitempty"`
	SourcePOS        *PartOfSpeech  `json:"source_part_of_speech,omitempty"`
	SourceArticle    *string        `json:"source_article,omitempty"`
	SourceInfo       *string        `json:"source_additional_info,omitempty"`
	ExistingItems    []ExistingItem `json:"existing_items,omitempty"`

	TargetWord       *string       `json:"target_word,omitempty"`
	TargetPOS        *PartOfSpeech `json:"target_part_of_speech,omitempty"`
	TargetArticle    *string       `json:"target_article,omitempty"`
	TargetInfo       *string       `json:"target_additional_info,omitempty"`
	TargetPluralForm *string       `json:"target_plural_form,omitempty"`
	EnglishWord      *string       `json:"english_word,omitempty"`

	Media          *Media          `json:"media,omitempty"`
	SearchQuery    []string        `json:"search_query,omitempty"`
	MediaReused    *bool           `json:"media_reused,omitempty"`
	Examples       []Example       `json:"examples,omitempty"`
	Synonyms       []Synonym       `json:"synonyms,omitempty"`
	Syllables      []string        `json:"syllables,omitempty"`
	PhoneticGuide  *string         `json:"phonetic_guide,omitempty"`
	Conjugation    *Conjugation    `json:"conjugation,omitempty"`
	Pronunciations *Pronunciations `json:"pronunciations,omitempty"`

	ParallelTasks    []ToolName           `json:"parallel_tasks_to_execute,omitempty"`
	ParallelComplete *bool                `json:"parallel_tasks_complete,omitempty"`
	Quality          map[ToolName]Quality `json:"quality,omitempty"`
	Completed        []ToolName           `json:"completed,omitempty"`

	OverallScore       *float64 `json:"overall_quality_score,omitempty"`
	GatesPassed        *int     `json:"quality_gates_passed,omitempty"`
	GatesFailed        *int     `json:"quality_gates_failed,omitempty"`
	ProcessingComplete *bool    `json:"processing_complete,omitempty"`
}

// Empty reports whether merging the delta would be a no-op.
func (d Delta) Empty() bool {
	return d.Word == nil && d.SourceLanguage == nil && d.Validated == nil &&
		d.IssueMessage == nil && d.IssueSuggestions == nil && d.Definitions == nil &&
		d.SourcePOS == nil && d.SourceArticle == nil && d.SourceInfo == nil &&
		d.ExistingItems == nil && d.TargetWord == nil && d.TargetPOS == nil &&
		d.TargetArticle == nil && d.TargetInfo == nil && d.TargetPluralForm == nil &&
		d.EnglishWord == nil && d.Media == nil && d.SearchQuery == nil &&
		d.MediaReused == nil && d.Examples == nil && d.Synonyms == nil &&
		d.Syllables == nil && d.PhoneticGuide == nil &&
		d.Conjugation == nil && d.Pronunciations == nil &&
		d.ParallelTasks == nil && d.ParallelComplete == nil &&
		d.OverallScore == nil && d.GatesPassed == nil && d.GatesFailed == nil &&
		d.ProcessingComplete == nil &&
		len(d.Quality) == 0 && len(d.Completed) == 0
}

// Merge applies a delta. Scalars are last-writer-wins, Completed is a set
// union, and Quality entries replace per tool.
func (s *State) Merge(d Delta) {
	if d.Word != nil {
		s.Word = *d.Word
	}
	if d.SourceLanguage != nil {
		s.SourceLanguage = *d.SourceLanguage
	}
	if d.Validated != nil {
		s.Validated = *d.Validated
	}
	if d.IssueMessage != nil {
		s.IssueMessage = *d.IssueMessage
	}
	if d.IssueSuggestions != nil {
		s.IssueSuggestions = d.IssueSuggestions
	}
	if d.Definitions != nil {
		s.Definitions = d.Definitions
	}
	if d.SourcePOS != nil {
		s.SourcePOS = *d.SourcePOS
	}
	if d.SourceArticle != nil {
		s.SourceArticle = *d.SourceArticle
	}
	if d.SourceInfo != nil {
		s.SourceInfo = *d.SourceInfo
	}
	if d.ExistingItems != nil {
		s.ExistingItems = d.ExistingItems
	}
	if d.TargetWord != nil {
		s.TargetWord = *d.TargetWord
	}
	if d.TargetPOS != nil {
		s.TargetPOS = *d.TargetPOS
	}
	if d.TargetArticle != nil {
		s.TargetArticle = *d.TargetArticle
	}
	if d.TargetInfo != nil {
		s.TargetInfo = *d.TargetInfo
	}
	if d.TargetPluralForm != nil {
		s.TargetPluralForm = *d.TargetPluralForm
	}
	if d.EnglishWord != nil {
		s.EnglishWord = *d.EnglishWord
	}
	if d.Media != nil {
		s.Media = d.Media
	}
	if d.SearchQuery != nil {
		s.SearchQuery = d.SearchQuery
	}
	if d.MediaReused != nil {
		s.MediaReused = *d.MediaReused
	}
	if d.Examples != nil {
		s.Examples = d.Examples
	}
	if d.Synonyms != nil {
		s.Synonyms = d.Synonyms
	}
	if d.Syllables != nil {
		s.Syllables = d.Syllables
	}
	if d.PhoneticGuide != nil {
		s.PhoneticGuide = *d.PhoneticGuide
	}
	if d.Conjugation != nil {
		s.Conjugation = d.Conjugation
	}
	if d.Pronunciations != nil {
		s.Pronunciations = d.Pronunciations
	}
	if d.ParallelTasks != nil {
		s.ParallelTasks = d.ParallelTasks
	}
	if d.ParallelComplete != nil {
		s.ParallelComplete = *d.ParallelComplete
	}
	if d.OverallScore != nil {
		s.OverallScore = *d.OverallScore
	}
	if d.GatesPassed != nil {
		s.GatesPassed = *d.GatesPassed
	}
	if d.GatesFailed != nil {
		s.GatesFailed = *d.GatesFailed
	}
	if d.ProcessingComplete != nil {
		s.ProcessingComplete = *d.ProcessingComplete
	}
	for tool, q := range d.Quality {
		if s.Quality == nil {
			s.Quality = make(map[ToolName]Quality)
		}
		s.Quality[tool] = q
	}
	for _, tool := range d.Completed {
		if s.Completed == nil {
			s.Completed = make(map[ToolName]bool)
		}
		s.Completed[tool] = true
	}
}

// Clone copies the state for branch-local use. Quality and Completed get
// fresh maps; slice fields are shared because merges replace them wholesale.
func (s *State) Clone() *State {
	c := *s
	c.Quality = make(map[ToolName]Quality, len(s.Quality))
	for tool, q := range s.Quality {
		c.Quality[tool] = q
	}
	c.Completed = make(map[ToolName]bool, len(s.Completed))
	for tool, done := range s.Completed {
		c.Completed[tool] = done
	}
	return &c
}

// QualityFor returns the gate verdict recorded for a tool.
func (s *State) QualityFor(tool ToolName) (Quality, bool) {
	q, ok := s.Quality[tool]
	return q, ok
}

// HasCompleted reports whether every listed task has finished.
func (s *State) HasCompleted(tools ...ToolName) bool {
	for _, tool := range tools {
		if !s.Completed[tool] {
			return false
		}
	}
	return true
}

// ApprovedMean is the mean score across approved verdicts, quantized to four
// decimals. Zero when nothing was approved.
func (s *State) ApprovedMean() float64 {
	var sum float64
	var n int
	for _, q := range s.Quality {
		if q.Approved {
			sum += q.Score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return Quantize4(sum / float64(n))
}

// Entry assembles the persistable artifact from the completed state.
func (s *State) Entry(now time.Time) *VocabEntry {
	e := &VocabEntry{
		SourceWord:          s.Word,
		SourceLanguage:      s.SourceLanguage,
		TargetLanguage:      s.TargetLanguage,
		SourceDef:           s.Definitions,
		SourcePOS:           s.SourcePOS,
		SourceArticle:       s.SourceArticle,
		SourceInfo:          s.SourceInfo,
		TargetWord:          s.TargetWord,
		TargetPOS:           s.TargetPOS,
		TargetArticle:       s.TargetArticle,
		TargetInfo:          s.TargetInfo,
		TargetPluralForm:    s.TargetPluralForm,
		Syllables:           s.Syllables,
		PhoneticGuide:       s.PhoneticGuide,
		Synonyms:            s.Synonyms,
		Examples:            s.Examples,
		Conjugation:         s.Conjugation,
		Pronunciations:      s.Pronunciations,
		Media:               s.Media,
		SearchQuery:         s.SearchQuery,
		MediaReused:         s.MediaReused,
		EnglishWord:         s.EnglishWord,
		OverallQualityScore: s.ApprovedMean(),
		CreatedAt:           now.UTC(),
		UserID:              s.UserID,
		RequestID:           s.RequestID,
	}
	e.Keys()
	return e
}
