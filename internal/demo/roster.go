// Package demo provides the built-in sample roster used when no file is
// uploaded, so the full report pipeline can be exercised without data or
// API credentials.
package demo

import "github.com/sahayak-analytics/backend/internal/models"

// Students returns the sample multi-grade roster. Callers get a fresh
// slice on every call and may modify it freely.
func Students() []models.StudentRecord {
	return []models.StudentRecord{
		{
			Name:     "Arjun",
			Grade:    "Class 4",
			Subject:  "Mathematics",
			Remark:   "Arjun excels in basic arithmetic but struggles with word problems. Shows excellent focus during individual work but gets distracted in group settings. Needs support in reading comprehension for math problems.",
			ExamDate: "2024-12-15",
		},
		{
			Name:     "Priya",
			Grade:    "Class 5",
			Subject:  "English",
			Remark:   "Priya has strong vocabulary but struggles with sentence construction. She helps younger students during reading time, showing leadership qualities. Needs structured grammar practice and confidence building for writing.",
			ExamDate: "2024-12-14",
		},
		{
			Name:     "Rohan",
			Grade:    "Class 3",
			Subject:  "Science",
			Remark:   "Rohan asks insightful questions about nature and experiments but has difficulty following multi-step instructions. Very curious but needs help organizing his thoughts and answers. Great potential for hands-on learning.",
			ExamDate: "2024-12-13",
		},
		{
			Name:     "Kavya",
			Grade:    "Class 5",
			Subject:  "Mathematics",
			Remark:   "Kavya is advanced in calculations and often helps classmates. However, she rushes through problems and makes careless errors. Shows impatience when others are slower to understand concepts.",
			ExamDate: "2024-12-12",
		},
		{
			Name:     "Aman",
			Grade:    "Class 4",
			Subject:  "Hindi",
			Remark:   "Aman has difficulty with reading fluency but loves storytelling in his local dialect. Struggles with formal Hindi writing but shows creativity in oral expression. Needs bridge between his native language and formal Hindi.",
			ExamDate: "2024-12-11",
		},
	}
}
