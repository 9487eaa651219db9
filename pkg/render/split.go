package render

import "github.com/edubridge/reportcard-api/internal/models"

// SplitSubjects chunks a subject list into ordered groups of at most
// capacity rows. Concatenating the chunks in order reproduces the input
// exactly. An empty list yields a single empty chunk so that every student
// still renders one page.
func SplitSubjects(subjects []models.SubjectRecord, capacity int) [][]models.SubjectRecord {
	if capacity <= 0 {
		capacity = 1
	}
	if len(subjects) == 0 {
		return [][]models.SubjectRecord{{}}
	}
	chunks := make([][]models.SubjectRecord, 0, (len(subjects)+capacity-1)/capacity)
	for start := 0; start < len(subjects); start += capacity {
		end := start + capacity
		if end > len(subjects) {
			end = len(subjects)
		}
		chunks = append(chunks, subjects[start:end])
	}
	return chunks
}
