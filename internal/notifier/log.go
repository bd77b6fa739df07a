package notifier

import (
	"log/slog"

	"github.com/amishk599/autocareer/internal/model"
)

var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier reports newly added jobs through slog.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs one line per job, best score first. It never fails.
func (n *LogNotifier) Notify(jobs []model.Job) error {
	for _, j := range byScore(jobs) {
		args := []any{"company", j.Company, "title", j.Title, "url", j.URL}
		if j.Score != nil {
			args = append(args, "score", *j.Score)
		}
		n.logger.Info("new job match", args...)
	}
	return nil
}
