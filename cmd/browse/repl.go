package main

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomgandolfo2/ESLworksheets/internal/listing"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

// printlnFn is a test seam for user-facing output
var printlnFn = fmt.Println

// account is the part of the HTTP client the REPL uses directly
type account interface {
	SetToken(token string)
	Me(ctx context.Context) (*models.Identity, error)
	SendContact(ctx context.Context, name, email, message string) error
}

const helpText = `Commands:
  list | l               show loaded worksheets
  more                   load the next page
  level <A1..C2|any>     choose a level
  skill <name|any>       choose a skill
  search <text>          search titles and descriptions
  apply                  apply the chosen filters
  clear <level|skill|search>
  ratings                refresh rating summaries
  download <n>           download worksheet n
  rate <n> <1-5>         rate worksheet n
  downloads              list your downloaded worksheets
  token <session token>  sign in with a session token
  me                     show who you are signed in as
  contact <name> <email> <message>
  exit | quit`

// runREPL reads commands from scanner and drives ctl until EOF or exit.
// Every command waits for the network work it started before printing.
func runREPL(ctx context.Context, ctl *listing.Controller, acct account, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("esl %s> ", prompt(ctl.Snapshot())))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "l", "list":
			printItems(ctl.Snapshot())

		case "more":
			ctl.NearBottom()
			ctl.Wait()
			printItems(ctl.Snapshot())

		case "level":
			level, err := parseChoice(args, models.ParseLevel)
			if err != nil {
				printlnFn(err)
				continue
			}
			ctl.SetPendingLevel(level)

		case "skill":
			skill, err := parseChoice(args, models.ParseSkill)
			if err != nil {
				printlnFn(err)
				continue
			}
			ctl.SetPendingSkill(skill)

		case "search":
			ctl.EditSearch(strings.Join(args, " "))
			ctl.ApplyFilters()
			ctl.Wait()
			printItems(ctl.Snapshot())

		case "apply":
			ctl.ApplyFilters()
			ctl.Wait()
			printItems(ctl.Snapshot())

		case "clear":
			if len(args) != 1 {
				printlnFn("usage: clear <level|skill|search>")
				continue
			}
			kind := listing.FilterKind(strings.ToLower(args[0]))
			if kind != listing.FilterLevel && kind != listing.FilterSkill && kind != listing.FilterSearch {
				printlnFn("usage: clear <level|skill|search>")
				continue
			}
			ctl.RemoveFilter(kind)
			ctl.Wait()
			printItems(ctl.Snapshot())

		case "ratings":
			ctl.LoadRatings()
			ctl.Wait()
			printItems(ctl.Snapshot())

		case "download":
			ws, ok := pickItem(ctl.Snapshot(), args)
			if !ok {
				printlnFn("usage: download <n>")
				continue
			}
			_ = ctl.Download(ws)
			ctl.Wait()

		case "rate":
			ws, ok := pickItem(ctl.Snapshot(), args)
			if !ok || len(args) != 2 {
				printlnFn("usage: rate <n> <1-5>")
				continue
			}
			stars, err := strconv.Atoi(args[1])
			if err != nil || stars < models.MinRating || stars > models.MaxRating {
				printlnFn("rating must be between 1 and 5")
				continue
			}
			ctl.SelectRating(ws.ID, stars)
			ctl.SubmitRating(ws.ID)
			ctl.Wait()

		case "downloads":
			ctl.LoadDownloads()
			ctl.Wait()
			printDownloads(ctl.Snapshot())

		case "token":
			if len(args) != 1 {
				printlnFn("usage: token <session token>")
				continue
			}
			acct.SetToken(args[0])
			signIn(ctx, ctl, acct)

		case "me":
			identity, err := acct.Me(ctx)
			if err != nil {
				printlnFn("Not signed in")
				continue
			}
			printlnFn(fmt.Sprintf("%s <%s> (%s)", identity.Name, identity.Email, identity.Role))

		case "contact":
			if len(args) < 3 {
				printlnFn("usage: contact <name> <email> <message>")
				continue
			}
			if err := acct.SendContact(ctx, args[0], args[1], strings.Join(args[2:], " ")); err != nil {
				printlnFn("Message not sent:", err)
				continue
			}
			printlnFn("Message sent. Thank you!")

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		printNotice(ctl)
	}
}

// signIn checks the current token and updates the controller's signed-in flag
func signIn(ctx context.Context, ctl *listing.Controller, acct account) bool {
	identity, err := acct.Me(ctx)
	if err != nil {
		acct.SetToken("")
		ctl.SetAuthenticated(false)
		printlnFn("Session token rejected")
		return false
	}
	ctl.SetAuthenticated(true)
	printlnFn("Signed in as " + identity.Email)
	return true
}

func prompt(s listing.State) string {
	if s.Applied.IsZero() {
		return "[all]"
	}
	var parts []string
	if s.Applied.Level != "" {
		parts = append(parts, string(s.Applied.Level))
	}
	if s.Applied.Skill != "" {
		parts = append(parts, string(s.Applied.Skill))
	}
	if s.Applied.Search != "" {
		parts = append(parts, strconv.Quote(s.Applied.Search))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func parseChoice[T ~string](args []string, parse func(string) (T, error)) (T, error) {
	var zero T
	if len(args) == 0 {
		return zero, fmt.Errorf("missing value")
	}
	value := strings.Join(args, " ")
	if strings.EqualFold(value, "any") {
		return zero, nil
	}
	return parse(value)
}

func pickItem(s listing.State, args []string) (models.Worksheet, bool) {
	if len(args) == 0 {
		return models.Worksheet{}, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(s.Items) {
		return models.Worksheet{}, false
	}
	return s.Items[n-1], true
}

func printItems(s listing.State) {
	if s.Error {
		printlnFn("Failed to load worksheets.")
	}
	if len(s.Items) == 0 {
		if !s.Error {
			printlnFn("No worksheets found.")
		}
		return
	}
	for i, ws := range s.Items {
		line := fmt.Sprintf("%2d. [%s %s] %s", i+1, ws.Level, ws.Skill, ws.Title)
		if r, ok := s.Ratings[ws.ID]; ok && r.ReviewCount > 0 {
			line += fmt.Sprintf("  %.1f/5 (%d)", r.AverageRating, r.ReviewCount)
		}
		printlnFn(line)
	}
	if s.HasMore {
		printlnFn("... type 'more' for the next page")
	}
}

func printDownloads(s listing.State) {
	if !s.Authenticated {
		return
	}
	if len(s.Downloads) == 0 {
		printlnFn("You have not downloaded any worksheets yet.")
		return
	}
	for _, d := range s.Downloads {
		title := d.WorksheetID
		if d.Worksheet != nil {
			title = d.Worksheet.Title
		}
		rating := "not rated"
		if d.IsRated() {
			rating = strings.Repeat("*", s.DisplayedRatings[d.WorksheetID])
		}
		printlnFn(fmt.Sprintf("%s  %s  %s", d.DownloadedAt.Format("2006-01-02"), title, rating))
	}
}

func printNotice(ctl *listing.Controller) {
	n := ctl.Snapshot().Notice
	if n == nil {
		return
	}
	printlnFn(fmt.Sprintf("[%s] %s", n.Kind, n.Text))
	ctl.DismissNotice()
}
