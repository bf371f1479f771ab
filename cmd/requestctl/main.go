// Command requestctl drives the donation request API from a terminal. It runs
// the same local checks as the web front end before sending anything.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"blood-donation/internal/client"
	"blood-donation/internal/clock"
	"blood-donation/internal/config"
	"blood-donation/internal/domain"
	"blood-donation/internal/service/lifecycle"
	"blood-donation/internal/service/search"
)

const usage = `usage: requestctl [flags] <command> [args]

commands:
  show <id>                 print a request
  donate <id>               commit to donate
  complete <id>             mark an in-progress request completed
  cancel <id>               cancel a pending or in-progress request
  update <id> [edit flags]  edit a pending request (-recipient, -hospital, -date, -time, -address, -info)
  delete <id>               delete a pending or cancelled request
  donors [filter flags]     search the donor directory
`

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	zlog, err := config.NewLogger("warn", "console", "requestctl")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(context.Background(), cfg, zlog, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "requestctl:", describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("requestctl", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage); fs.PrintDefaults() }
	baseURL := fs.String("api", cfg.APIBaseURL, "API base URL")
	token := fs.String("token", os.Getenv("REQUESTCTL_TOKEN"), "bearer token")
	lang := fs.String("lang", "en", "preferred language for error messages")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	machine := lifecycle.NewMachine(clock.NewSystem(), cfg.Location())
	c := client.New(*baseURL, cfg.ClientMutationTimeout, machine, zlog)
	c.SetLanguage(*lang)
	if *token != "" {
		c.SetToken(*token)
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "donors" {
		return donors(ctx, c, rest, out)
	}

	var edit domain.UpdateDonationRequestInput
	if cmd == "update" && len(rest) > 0 {
		var err error
		if edit, err = parseEdit(rest[1:]); err != nil {
			return err
		}
		rest = rest[:1]
	}
	if len(rest) != 1 {
		return fmt.Errorf("%s needs exactly one request id", cmd)
	}
	id, err := uuid.Parse(rest[0])
	if err != nil {
		return fmt.Errorf("invalid request id %q", rest[0])
	}

	req, err := c.Fetch(ctx, id)
	if err != nil {
		return err
	}
	if cmd == "show" {
		return printJSON(out, req)
	}

	actor := domain.Guest()
	if *token != "" {
		me, err := c.Me(ctx)
		if err != nil {
			return err
		}
		actor = me.Actor()
	}

	switch cmd {
	case "donate":
		req, err = c.Donate(ctx, req, actor)
	case "complete":
		req, err = c.Complete(ctx, req, actor)
	case "cancel":
		req, err = c.Cancel(ctx, req, actor)
	case "update":
		req, err = c.Update(ctx, req, actor, edit)
	case "delete":
		if err = c.Delete(ctx, req, actor); err == nil {
			fmt.Fprintf(out, "deleted %s\n", id)
			return nil
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		var stale *client.StaleError
		if errors.As(err, &stale) && stale.Latest != nil {
			fmt.Fprintln(out, "current state of the request:")
			if perr := printJSON(out, stale.Latest); perr != nil {
				return perr
			}
		}
		return err
	}
	return printJSON(out, req)
}

// parseEdit reads the update flags. Only flags that were given end up in the
// input, so an explicit empty value still reaches the server's validation.
func parseEdit(args []string) (domain.UpdateDonationRequestInput, error) {
	var input domain.UpdateDonationRequestInput
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fields := map[string]**string{
		"recipient": &input.RecipientName,
		"hospital":  &input.Hospital,
		"date":      &input.RequiredDate,
		"time":      &input.RequiredTime,
		"address":   &input.FullAddress,
		"info":      &input.AdditionalInfo,
	}
	values := make(map[string]*string, len(fields))
	for name := range fields {
		values[name] = fs.String(name, "", "new "+name)
	}
	if err := fs.Parse(args); err != nil {
		return input, err
	}
	if fs.NArg() > 0 {
		return input, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	fs.Visit(func(f *flag.Flag) {
		*fields[f.Name] = values[f.Name]
	})
	if input.IsEmpty() {
		return input, errors.New("update needs at least one edit flag")
	}
	return input, nil
}

func donors(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("donors", flag.ContinueOnError)
	bloodGroup := fs.String("blood-group", "", "blood group, e.g. O+")
	division := fs.String("division", "", "division name")
	district := fs.String("district", "", "district name")
	upazila := fs.String("upazila", "", "upazila name")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 10, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := c.SearchDonors(ctx, search.NewFilter(*bloodGroup, *division, *district, *upazila), *page, *limit)
	if err != nil {
		return err
	}
	for _, d := range resp.Data {
		fmt.Fprintf(out, "%-4s %-28s %s\n", d.BloodGroup, d.FullName, strings.Join(nonEmpty(d.Upazila, d.District, d.Division), ", "))
	}
	fmt.Fprintf(out, "page %d of %d (%d donors)\n", resp.Page, resp.TotalPages, resp.TotalItems)
	return nil
}

// describe turns the errors the user can act on into plain sentences.
func describe(err error) string {
	var verr *domain.ValidationError
	var derr *domain.Error
	var stale *client.StaleError
	switch {
	case errors.As(err, &verr):
		return fmt.Sprintf("invalid %s: %s", verr.Field, verr.Message)
	case errors.As(err, &stale) && stale.Latest != nil:
		return "the request changed since it was loaded; its current state is printed above"
	case errors.Is(err, domain.ErrPreconditionFailed):
		return "the request changed since it was loaded; run show and try again"
	case errors.As(err, &stale) && errors.Is(err, domain.ErrNotFound):
		return "the request no longer exists"
	case errors.Is(err, client.ErrOutcomeUnknown):
		return "no answer in time; run show to see whether the change was applied"
	case errors.Is(err, client.ErrMutationInFlight):
		return err.Error()
	case errors.Is(err, client.ErrNetwork):
		return "cannot reach the API: " + err.Error()
	case errors.As(err, &derr):
		return derr.Message
	default:
		return err.Error()
	}
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
