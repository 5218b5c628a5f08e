package ranking

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/finn-ranker/internal/jobs"
	"github.com/spigell/finn-ranker/internal/profile"
	"github.com/spigell/finn-ranker/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

//go:embed system.md
var systemPrompt string

const maxUserInstructionRunes = 500

func buildPrompt(p profile.Profile, listings []jobs.Listing, language, instructions string, descriptionLimit int) string {
	coverLetter := ""
	if text := strings.TrimSpace(p.CoverLetter); text != "" {
		coverLetter = "\nHere is my cover letter (it gives context on what I am looking for):\n---\n" + text + "\n---\n"
	}

	replacer := strings.NewReplacer(
		"{{CV}}", strings.TrimSpace(p.CV),
		"{{COVER_LETTER}}", coverLetter,
		"{{COUNT}}", strconv.Itoa(len(listings)),
		"{{LANGUAGE}}", language,
		"{{USER_INSTRUCTIONS}}", sanitizeInstructions(instructions),
		"{{LISTINGS}}", formatListings(listings, descriptionLimit),
	)

	return replacer.Replace(promptTemplate)
}

func formatListings(listings []jobs.Listing, descriptionLimit int) string {
	var b strings.Builder
	for i, listing := range listings {
		fmt.Fprintf(&b, "\n[%d] %s – %s (%s)\n", i, utils.OneLine(listing.Title), utils.OneLine(listing.Employer), utils.OneLine(listing.Location))
		if description := strings.TrimSpace(listing.Description); description != "" {
			b.WriteString(strings.TrimSpace(utils.TruncateRunes(description, descriptionLimit)))
			b.WriteString("\n")
		}
		b.WriteString("---")
	}
	return strings.TrimPrefix(b.String(), "\n")
}

// sanitizeInstructions renders free text as an indented list, one item per
// line. Square brackets are replaced so the text cannot open a new prompt section.
func sanitizeInstructions(raw string) string {
	var lines []string
	remaining := maxUserInstructionRunes
	for _, line := range strings.Split(raw, "\n") {
		line = utils.OneLine(line)
		line = strings.NewReplacer("[", "(", "]", ")").Replace(line)
		if line == "" || remaining <= 0 {
			continue
		}
		if utf8.RuneCountInString(line) > remaining {
			line = utils.TruncateRunes(line, remaining)
		}
		remaining -= utf8.RuneCountInString(line)
		lines = append(lines, "  - "+line)
	}

	if len(lines) == 0 {
		return "  - none"
	}
	return strings.Join(lines, "\n")
}
