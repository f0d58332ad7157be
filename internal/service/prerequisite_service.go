package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-registrar-api/internal/models"
)

type prerequisiteReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error)
	ListPublishedTranscripts(ctx context.Context, studentID string, courseIDs []string) ([]models.Transcript, error)
}

// letterRank orders letter grades; higher is better.
var letterRank = map[string]int{
	"A+": 12, "A": 11, "A-": 10,
	"B+": 9, "B": 8, "B-": 7,
	"C+": 6, "C": 5, "C-": 4,
	"D+": 3, "D": 2, "D-": 1,
	"E": 0, "F": 0,
}

// PrerequisiteService decides which declared prerequisites a student has not
// satisfied with a published transcript.
type PrerequisiteService struct {
	repo   prerequisiteReader
	logger *zap.Logger
}

// NewPrerequisiteService constructs the checker.
func NewPrerequisiteService(repo prerequisiteReader, logger *zap.Logger) *PrerequisiteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrerequisiteService{repo: repo, logger: logger}
}

// Missing returns the prerequisites of courseID the student has not met. An
// empty result means the student may enrol.
func (s *PrerequisiteService) Missing(ctx context.Context, studentID, courseID string) ([]models.MissingPrerequisite, error) {
	prereqs, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to load prerequisites")
	}
	if len(prereqs) == 0 {
		return nil, nil
	}

	courseIDs := make([]string, 0, len(prereqs))
	for _, p := range prereqs {
		courseIDs = append(courseIDs, p.PrerequisiteCourseID)
	}
	transcripts, err := s.repo.ListPublishedTranscripts(ctx, studentID, courseIDs)
	if err != nil {
		return nil, internalError(err, "failed to load transcripts")
	}

	byCourse := make(map[string][]models.Transcript, len(transcripts))
	for _, t := range transcripts {
		byCourse[t.CourseID] = append(byCourse[t.CourseID], t)
	}

	var missing []models.MissingPrerequisite
	for _, p := range prereqs {
		if satisfied(byCourse[p.PrerequisiteCourseID], p.MinimumGrade) {
			continue
		}
		missing = append(missing, models.MissingPrerequisite{
			CourseID:     p.PrerequisiteCourseID,
			CourseCode:   p.PrerequisiteCode,
			CourseTitle:  p.PrerequisiteTitle,
			MinimumGrade: p.MinimumGrade,
		})
	}
	return missing, nil
}

func satisfied(transcripts []models.Transcript, minimum *string) bool {
	for _, t := range transcripts {
		if t.PublishedAt == nil {
			continue
		}
		if minimum == nil || strings.TrimSpace(*minimum) == "" {
			if passed(t) {
				return true
			}
			continue
		}
		if MeetsMinimumGrade(t, *minimum) {
			return true
		}
	}
	return false
}

// passed reports whether a transcript counts as completing the course when no
// minimum grade is declared. Failing letters and zero grade points do not.
func passed(t models.Transcript) bool {
	if rank, ok := letterRank[strings.ToUpper(strings.TrimSpace(t.FinalGrade))]; ok {
		return rank > 0
	}
	if t.GradePoints != nil {
		return *t.GradePoints > 0
	}
	return true
}

// MeetsMinimumGrade compares a transcript against a minimum expressed either
// as grade points ("2.0") or as a letter ("C+"). Unknown grades never pass.
func MeetsMinimumGrade(t models.Transcript, minimum string) bool {
	minimum = strings.ToUpper(strings.TrimSpace(minimum))
	if points, err := strconv.ParseFloat(minimum, 64); err == nil {
		return t.GradePoints != nil && *t.GradePoints >= points
	}
	want, ok := letterRank[minimum]
	if !ok {
		return false
	}
	got, ok := letterRank[strings.ToUpper(strings.TrimSpace(t.FinalGrade))]
	return ok && got >= want
}
