package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/exstem-engine/internal/config"
	"github.com/stemsi/exstem-engine/internal/database"
	"github.com/stemsi/exstem-engine/internal/logger"
	"github.com/stemsi/exstem-engine/internal/model"
	"github.com/stemsi/exstem-engine/internal/repository"
	"github.com/stemsi/exstem-engine/internal/service"
)

var subjects = []string{"Mathematics", "Physics", "Chemistry"}
var difficulties = []string{"easy", "medium", "hard"}

func main() {
	var (
		perSubject int
		total      int
		seed       int64
		token      string
	)
	flag.IntVar(&perSubject, "questions", 40, "Question bank entries per subject")
	flag.IntVar(&total, "paper-size", 30, "Questions drawn into the demo paper")
	flag.Int64Var(&seed, "seed", 42, "Seed for paper generation")
	flag.StringVar(&token, "entry-token", "", "Make the exam token-gated with this entry token")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	store := repository.NewPgStore(pool)

	fmt.Printf("=== Seeding %d questions ===\n", perSubject*len(subjects))
	for _, subject := range subjects {
		for i := 0; i < perSubject; i++ {
			q := &model.Question{
				Text: fmt.Sprintf("%s question #%d", subject, i+1),
				Options: model.Options{
					A: "Option A", B: "Option B", C: "Option C", D: "Option D",
				},
				CorrectOption: []string{model.OptionA, model.OptionB, model.OptionC, model.OptionD}[i%4],
				Subject:       subject,
				Topic:         fmt.Sprintf("Unit %d", i%5+1),
				Difficulty:    difficulties[i%len(difficulties)],
				ExamType:      "demo",
				DefaultMarks:  1,
				IsActive:      true,
			}
			if err := store.Questions().Create(ctx, q); err != nil {
				log.Fatal().Err(err).Str("subject", subject).Msg("Failed to create question")
			}
		}
	}

	paper := &model.QuestionPaper{
		Title:            "Demo Science Paper",
		Mode:             model.PaperModeRandom,
		ShuffleQuestions: true,
		Criteria: &model.GenerationCriteria{
			Subjects:         subjects,
			ExamTypes:        []string{"demo"},
			TotalQuestions:   total,
			MarksPerQuestion: 4,
		},
	}
	if err := store.Papers().Create(ctx, paper); err != nil {
		log.Fatal().Err(err).Msg("Failed to create paper")
	}

	papers := service.NewPaperService(store, nil, log)
	items, err := papers.Materialize(ctx, paper.ID, &seed)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate paper")
	}
	fmt.Printf("Generated paper %s with %d items\n", paper.ID, len(items))

	now := time.Now().UTC()
	exam := &model.Exam{
		Title:                   "Demo Live Exam",
		QuestionPaperID:         paper.ID,
		ScheduledStart:          now.Add(-5 * time.Minute),
		ScheduledEnd:            now.Add(4 * time.Hour),
		DurationMinutes:         60,
		BufferMinutes:           5,
		AccessType:              model.AccessTypeOpen,
		MaxAttempts:             2,
		RetakeDelayMinutes:      10,
		Status:                  model.ExamStatusLive,
		PassingScore:            float64(total*4) * 0.4,
		NegativeMarking:         true,
		NegativeMarkPerQuestion: 1,
		ShowResultImmediately:   true,
		ShowAnswersAfterExam:    true,
	}
	if token != "" {
		hash, err := service.HashEntryToken(token, cfg.BcryptCost)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash entry token")
		}
		exam.AccessType = model.AccessTypeToken
		exam.EntryTokenHash = hash
	}
	if err := store.Exams().Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}

	fmt.Printf("\nSeed completed! Exam %s (%s access) is live until %s\n",
		exam.ID, exam.AccessType, exam.ScheduledEnd.Format(time.RFC3339))
}
