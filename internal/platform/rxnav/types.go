package rxnav

// ConceptProperties is a single drug concept as returned by the vocabulary API.
type ConceptProperties struct {
	RxCUI    string `json:"rxcui"`
	Name     string `json:"name"`
	Synonym  string `json:"synonym"`
	TTY      string `json:"tty"`
	Language string `json:"language"`
	Suppress string `json:"suppress"`
	UMLSCUI  string `json:"umlscui"`
}

// ConceptGroup is a set of concepts sharing a term type tag.
type ConceptGroup struct {
	TTY               string              `json:"tty"`
	ConceptProperties []ConceptProperties `json:"conceptProperties"`
}

// DrugGroup is the payload of the drug-search endpoint.
type DrugGroup struct {
	Name         string         `json:"name"`
	ConceptGroup []ConceptGroup `json:"conceptGroup"`
}

type drugsResponse struct {
	DrugGroup DrugGroup `json:"drugGroup"`
}

// PropConcept is one property row from the all-properties endpoint. The
// property named "RxNorm Name" carries the concept's display name.
type PropConcept struct {
	PropCategory string `json:"propCategory"`
	PropName     string `json:"propName"`
	PropValue    string `json:"propValue"`
}

type allPropertiesResponse struct {
	PropConceptGroup struct {
		PropConcept []PropConcept `json:"propConcept"`
	} `json:"propConceptGroup"`
}

// RelatedGroup is the payload of the all-related endpoint: the root concept
// plus concept groups tagged by term type (IN, BN, DF, SCDC, ...).
type RelatedGroup struct {
	RxCUI        string         `json:"rxcui"`
	ConceptGroup []ConceptGroup `json:"conceptGroup"`
}

type allRelatedResponse struct {
	AllRelatedGroup RelatedGroup `json:"allRelatedGroup"`
}

type ndcsResponse struct {
	NDCGroup struct {
		NDCList struct {
			NDC []string `json:"ndc"`
		} `json:"ndcList"`
	} `json:"ndcGroup"`
}

type displayTermsResponse struct {
	DisplayTermsList struct {
		Term []string `json:"term"`
	} `json:"displayTermsList"`
}

type suggestionsResponse struct {
	SuggestionGroup struct {
		SuggestionList struct {
			Suggestion []string `json:"suggestion"`
		} `json:"suggestionList"`
	} `json:"suggestionGroup"`
}

// MinConceptItem identifies one participant in an interaction pair.
type MinConceptItem struct {
	RxCUI string `json:"rxcui"`
	Name  string `json:"name"`
	TTY   string `json:"tty"`
}

// InteractionConcept wraps a MinConceptItem inside an interaction pair.
type InteractionConcept struct {
	MinConceptItem MinConceptItem `json:"minConceptItem"`
}

// InteractionPair is one reported interaction between two concepts.
type InteractionPair struct {
	InteractionConcept []InteractionConcept `json:"interactionConcept"`
	Severity           string               `json:"severity"`
	Description        string               `json:"description"`
}

// FullInteractionType groups the pairs reported for one drug combination.
type FullInteractionType struct {
	Comment         string            `json:"comment"`
	InteractionPair []InteractionPair `json:"interactionPair"`
}

// FullInteractionTypeGroup is one source's set of interaction types.
type FullInteractionTypeGroup struct {
	SourceName          string                `json:"sourceName"`
	FullInteractionType []FullInteractionType `json:"fullInteractionType"`
}

type interactionListResponse struct {
	FullInteractionTypeGroup []FullInteractionTypeGroup `json:"fullInteractionTypeGroup"`
}
