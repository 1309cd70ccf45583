package domain

import (
	"bytes"
	"encoding/json"
)

// Document describes a successfully extracted file.
type Document struct {
	Filename        string `json:"filename"`
	PageCount       int    `json:"num_pages"`
	TotalCharacters int    `json:"total_characters"`
	TotalWords      int    `json:"total_words"`
}

// PageText maps a 1-based page number to its whitespace-normalised text.
type PageText map[int]string

// Extraction is the output of an Extractor.
type Extraction struct {
	Text     string
	Pages    PageText
	Metadata Document
}

// Passage is a chunk of source text ready for indexing.
type Passage struct {
	ID        string `json:"id"`
	GlobalID  string `json:"global_chunk_id,omitempty"`
	Text      string `json:"text"`
	Index     int    `json:"chunk_index"`
	Total     int    `json:"total_chunks"`
	Source    string `json:"source"`
	CharCount int    `json:"char_count"`
	WordCount int    `json:"word_count"`
	// PageNumber is 0 when the passage was not chunked page by page.
	PageNumber int `json:"page_number,omitempty"`
}

// Metadata is the part of a Passage stored alongside its text in the index.
type Metadata struct {
	Index      int    `json:"chunk_index"`
	Source     string `json:"source"`
	CharCount  int    `json:"char_count"`
	WordCount  int    `json:"word_count"`
	PageNumber int    `json:"page_number"`
}

// MetadataOf projects a passage into its stored metadata record.
func MetadataOf(p Passage) Metadata {
	return Metadata{
		Index:      p.Index,
		Source:     p.Source,
		CharCount:  p.CharCount,
		WordCount:  p.WordCount,
		PageNumber: p.PageNumber,
	}
}

// RetrievalResult is one ranked passage returned by a query.
type RetrievalResult struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	// Distance is nil when the index does not report one. Lower is closer.
	Distance *float64 `json:"distance,omitempty"`
}

// IngestResult reports the outcome of storing passages.
type IngestResult struct {
	ChunksAdded int `json:"chunks_added"`
	TotalStored int `json:"total_documents"`
}

// QueryResult is the ranked output of a similarity query.
type QueryResult struct {
	Query   string            `json:"query"`
	Results []RetrievalResult `json:"results"`
	Count   int               `json:"count"`
}

// StoreStats describes the backing collection.
type StoreStats struct {
	CollectionName string `json:"collection_name"`
	TotalDocuments int    `json:"total_documents"`
	StoragePath    string `json:"storage_path,omitempty"`
}

// Source is a citation attached to an answer.
type Source struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// Answer is a grounded response to a question.
type Answer struct {
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Sources     []Source `json:"sources"`
	SourceCount int      `json:"num_sources"`
}

// DocumentInfo summarises the currently loaded document.
type DocumentInfo struct {
	Filename   string `json:"filename"`
	PageCount  int    `json:"num_pages"`
	WordCount  int    `json:"total_words"`
	ChunkCount int    `json:"num_chunks"`
	ChunkSize  int    `json:"chunk_size"`
}

// Clause is the generated answer for one key-clause topic.
type Clause struct {
	Topic  string
	Answer string
}

// Clauses keeps topic order and encodes as a JSON object in that order.
type Clauses []Clause

// Map returns the clauses keyed by topic.
func (c Clauses) Map() map[string]string {
	m := make(map[string]string, len(c))
	for _, cl := range c {
		m[cl.Topic] = cl.Answer
	}
	return m
}

// MarshalJSON writes the clauses as an object whose keys follow topic order.
func (c Clauses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cl := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(cl.Topic)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(cl.Answer)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
