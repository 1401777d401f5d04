package domain

import (
	"sort"
	"strings"
	"time"
)

// FileTypeFlashcards is the catalog type of generated flashcard sets.
const FileTypeFlashcards = "flashcards"

// FileSummary is one entry of a user's file library.
type FileSummary struct {
	DocumentID   string    `json:"document_id,omitempty"`
	FileID       string    `json:"file_id"`
	Name         string    `json:"name"`
	UpdatedAt    time.Time `json:"updated_at"`
	SourceFileID string    `json:"source_file_id,omitempty"`
}

// SortFiles orders a library newest first, then by name.
func SortFiles(files []FileSummary) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}
