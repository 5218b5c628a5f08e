package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/finn-ranker/internal/filtering"
	"github.com/spigell/finn-ranker/internal/jobs"
	"github.com/spigell/finn-ranker/internal/profile"
)

const (
	PromptReportByEmployers = "Report by employers"
	PromptListingsToFile    = "Dump listings to file"
	PromptRank              = "Rank listings against the CV"
	PromptRankedToFile      = "Dump ranked listings to file"
	PromptExit              = "Exit"
	promptAny               = "(any)"
)

var errExit = errors.New("exit requested")

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search listings from the terminal and optionally rank them",
	Run: func(cmd *cobra.Command, _ []string) {
		search(cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("query", "q", "", "free text query")
	searchCmd.Flags().StringSlice("county", nil, "county label or value, may be repeated")
	searchCmd.Flags().StringSlice("municipality", nil, "municipality label or value, may be repeated")
	searchCmd.Flags().StringSlice("occupation", nil, "occupation label or value, may be repeated")
	searchCmd.Flags().StringSlice("industry", nil, "industry label or value, may be repeated")
	searchCmd.Flags().StringSlice("job-type", nil, "job type label or value, may be repeated")
	searchCmd.Flags().String("cv", "", "CV file (.pdf, .txt, .md) to rank the listings against")
	searchCmd.Flags().String("cover-letter", "", "optional cover letter file used for ranking")
	searchCmd.Flags().String("instructions", "", "extra ranking preferences, one per line")
	searchCmd.Flags().BoolP("interactive", "i", false, "pick filters through prompts")
	searchCmd.Flags().BoolP("auto-approve", "y", false, "rank right away and print the result without prompts")
	searchCmd.Flags().Bool("no-exclude", false, "do not drop listings by the exclude section of the config")

	viper.BindPFlag("ranking.instructions", searchCmd.Flags().Lookup("instructions"))
}

type searchSession struct {
	ctx     context.Context
	log     *zap.Logger
	config  *Config
	source  jobs.Source
	profile profile.Profile

	listings *jobs.Listings
	ranked   []jobs.RankedListing
}

func search(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	config, log := setup()

	source, closeSource := newSource(ctx, config, log)
	defer closeSource()

	set, err := source.Filters(ctx)
	if err != nil {
		log.Fatal("loading filters", zap.Error(err))
	}

	var filters jobs.SearchFilters
	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		filters, err = promptFilters(set)
	} else {
		filters, err = flagFilters(cmd)
	}
	if err != nil {
		log.Fatal("reading filters", zap.Error(err))
	}

	filters, err = set.ResolveLabels(filters)
	if err != nil {
		log.Fatal("resolving filter labels", zap.Error(err))
	}

	pretty, _ := json.Marshal(filters)
	log.Info("starting the search", zap.String("filters", string(pretty)))

	listings, err := source.Search(ctx, filters)
	if err != nil {
		log.Fatal("searching listings", zap.Error(err))
	}
	log.Info("found listings", zap.Int("count", listings.Len()))

	steps := filtering.Default()
	if noExclude, _ := cmd.Flags().GetBool("no-exclude"); noExclude {
		filtering.DisableByName(steps, "employers", "disabled by flag")
		filtering.DisableByName(steps, "keywords", "disabled by flag")
	}
	listings, err = filtering.Run(ctx, newExclude(config), filtering.Deps{Logger: log}, steps, listings)
	if err != nil {
		log.Fatal("filtering failed", zap.Error(err))
	}
	for _, status := range filtering.Describe(steps) {
		log.Debug("filter", zap.Any("status", status))
	}

	if listings.Len() == 0 {
		log.Info("exiting", zap.String("reason", "no listings found"))
		return
	}

	s := &searchSession{ctx: ctx, log: log, config: config, source: source, listings: listings}
	if err := s.loadProfile(cmd); err != nil {
		log.Fatal("loading profile", zap.Error(err))
	}

	if auto, _ := cmd.Flags().GetBool("auto-approve"); auto {
		action := PromptReportByEmployers
		if s.profile.HasCV() {
			action = PromptRank
		}
		if err := s.handleAction(action); err != nil {
			log.Fatal("exiting", zap.Error(err))
		}
		return
	}

	for {
		prompt := promptui.Select{
			Label: "Proceed?",
			Items: s.actions(),
		}
		_, action, err := prompt.Run()
		if err != nil {
			log.Fatal("exiting", zap.Error(err))
		}

		if err := s.handleAction(action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			log.Fatal("exiting", zap.Error(err))
		}
	}
}

func (s *searchSession) actions() []string {
	items := []string{PromptReportByEmployers, PromptListingsToFile}
	if s.profile.HasCV() {
		items = append(items, PromptRank)
	}
	if len(s.ranked) > 0 {
		items = append(items, PromptRankedToFile)
	}
	return append(items, PromptExit)
}

func (s *searchSession) handleAction(action string) error {
	switch action {
	case PromptExit:
		s.log.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptReportByEmployers:
		pretty, _ := json.MarshalIndent(s.listings.ReportByEmployer(), "", "  ")
		s.log.Info(string(pretty), zap.Int("listings count", s.listings.Len()))
		return nil
	case PromptListingsToFile:
		filename, err := s.listings.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump listings to file: %w", err)
		}
		s.log.Info("dumping listings to file", zap.String("filename", filename))
		return nil
	case PromptRank:
		return s.rank()
	case PromptRankedToFile:
		filename, err := jobs.DumpRankedToTmpFile(s.ranked)
		if err != nil {
			return fmt.Errorf("dump ranked listings to file: %w", err)
		}
		s.log.Info("dumping ranked listings to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (s *searchSession) loadProfile(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("cv"); path != "" {
		text, err := profile.ExtractFile(path)
		if err != nil {
			return fmt.Errorf("cv: %w", err)
		}
		s.profile.CV, s.profile.CVFilename = text, filepath.Base(path)
	}
	if path, _ := cmd.Flags().GetString("cover-letter"); path != "" {
		text, err := profile.ExtractFile(path)
		if err != nil {
			return fmt.Errorf("cover letter: %w", err)
		}
		s.profile.CoverLetter, s.profile.CoverLetterFilename = text, filepath.Base(path)
	}
	return nil
}

func (s *searchSession) rank() error {
	ranker, err := newRanker(s.ctx, s.config, s.log)
	if err != nil {
		return err
	}
	if err := ranker.Validate(s.profile, s.listings.Len()); err != nil {
		return err
	}

	s.log.Info("fetching descriptions", zap.Int("count", s.listings.Len()))
	described := s.source.Describe(s.ctx, s.listings.Items)

	s.log.Info("ranking listings", zap.String("model", ranker.Model()))
	ranked, err := ranker.Rank(s.ctx, s.profile, described)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}
	s.ranked = ranked

	for _, r := range ranked {
		fmt.Printf("%3d  %s / %s / %s\n     %s\n", r.Score, r.Title, r.Employer, r.URL, r.Summary)
	}
	return nil
}

func flagFilters(cmd *cobra.Command) (jobs.SearchFilters, error) {
	var f jobs.SearchFilters
	var err error

	flags := cmd.Flags()
	if f.Query, err = flags.GetString("query"); err != nil {
		return f, err
	}

	var counties, municipalities []string
	if counties, err = flags.GetStringSlice("county"); err != nil {
		return f, err
	}
	if municipalities, err = flags.GetStringSlice("municipality"); err != nil {
		return f, err
	}
	f.Locations = append(counties, municipalities...)

	if f.Occupations, err = flags.GetStringSlice("occupation"); err != nil {
		return f, err
	}
	if f.Industries, err = flags.GetStringSlice("industry"); err != nil {
		return f, err
	}
	if f.JobTypes, err = flags.GetStringSlice("job-type"); err != nil {
		return f, err
	}

	return f, nil
}

func promptFilters(set jobs.FilterSet) (jobs.SearchFilters, error) {
	var f jobs.SearchFilters

	queryPrompt := promptui.Prompt{Label: "Query (empty for none)"}
	query, err := queryPrompt.Run()
	if err != nil {
		return f, err
	}
	f.Query = strings.TrimSpace(query)

	for _, field := range []struct {
		name   string
		label  string
		target *[]string
	}{
		{name: "location", label: "Location", target: &f.Locations},
		{name: "occupation", label: "Occupation", target: &f.Occupations},
		{name: "industry", label: "Industry", target: &f.Industries},
	} {
		options := set.Flatten(field.name)
		if len(options) == 0 {
			continue
		}

		labels := make([]string, 0, len(options)+1)
		labels = append(labels, promptAny)
		for _, option := range options {
			labels = append(labels, option.Label)
		}

		prompt := promptui.Select{
			Label:             field.label,
			Items:             labels,
			Size:              15,
			StartInSearchMode: true,
			Searcher: func(input string, index int) bool {
				return strings.Contains(jobs.Fold(labels[index]), jobs.Fold(input))
			},
		}
		index, _, err := prompt.Run()
		if err != nil {
			return f, err
		}
		if index > 0 {
			*field.target = []string{options[index-1].Value}
		}
	}

	return f, nil
}
