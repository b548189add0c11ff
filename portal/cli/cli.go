// Package cli is libctl, a terminal client of the library API for students.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Astemirdum/library-portal/pkg/fine"
	"github.com/Astemirdum/library-portal/pkg/logger"
	"github.com/Astemirdum/library-portal/portal/config"
	"github.com/Astemirdum/library-portal/portal/internal/audit"
	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/Astemirdum/library-portal/portal/internal/service/api"
	"github.com/Astemirdum/library-portal/portal/internal/service/student"
	"github.com/Astemirdum/library-portal/portal/internal/store"
	"github.com/Astemirdum/library-portal/portal/internal/view"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

const dateLayout = time.DateOnly

type env struct {
	API  config.API
	Fine config.Fine
}

type cli struct {
	env       env
	envErr    error
	apiURL    string
	tokenPath string
	verbose   bool

	log    *zap.Logger
	tokens *tokenFile
	client *api.Client
	now    func() time.Time
}

// NewRootCmd builds the libctl command tree. Defaults come from the same environment
// the portal reads.
func NewRootCmd() *cobra.Command {
	c := &cli{now: time.Now}
	c.envErr = envconfig.Process("", &c.env)
	root := &cobra.Command{
		Use:           "libctl",
		Short:         "Browse the library catalog and manage your loans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
	}
	root.PersistentFlags().StringVar(&c.apiURL, "api", c.env.API.BaseURL, "library API base URL")
	root.PersistentFlags().StringVar(&c.tokenPath, "token-file", defaultTokenPath(), "where the sign-in is kept")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log API calls")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.booksCmd(),
		c.loansCmd(),
		c.historyCmd(),
		c.issueCmd(),
		c.returnCmd(),
		c.fineCmd(),
	)
	return root
}

func (c *cli) init() error {
	if c.envErr != nil {
		return errors.Wrap(c.envErr, "environment")
	}
	level := zapcore.WarnLevel
	if c.verbose {
		level = zapcore.DebugLevel
	}
	c.log = logger.NewLogger(logger.Log{LogLevel: level}, "libctl")
	c.tokens = newTokenFile(c.tokenPath, c.log)
	cfg := c.env.API
	if c.apiURL == "" {
		return errors.New("no API URL, set --api or LIBRARY_API_URL")
	}
	cfg.BaseURL = c.apiURL
	c.client = api.NewClient(c.log, cfg, c.tokens)
	return nil
}

// signedIn returns ctx carrying the saved sign-in.
func (c *cli) signedIn(ctx context.Context) (context.Context, credentials, error) {
	cr, err := c.tokens.Load()
	if err != nil {
		if errors.Is(err, errs.ErrNoSession) || errors.Is(err, errs.ErrUnauthorized) {
			return nil, credentials{}, errors.New("not signed in, run libctl login")
		}
		return nil, credentials{}, err
	}
	return cr.Context(ctx), cr, nil
}

// workspace loads the catalog and the records of the signed-in student.
func (c *cli) workspace(cmd *cobra.Command) (context.Context, *student.Service, *store.Store, error) {
	ctx, _, err := c.signedIn(cmd.Context())
	if err != nil {
		return nil, nil, nil, err
	}
	svc := student.NewService(c.log, c.client, audit.NewRecorder(c.log, audit.NewStatsLog(nil, "")), c.env.Fine.Calculator())
	st := store.New()
	failed := svc.Load(ctx, st)
	if _, err := c.tokens.Load(); err != nil {
		return nil, nil, nil, errs.ErrUnauthorized
	}
	if len(failed) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not load %s\n", strings.Join(failed, ", "))
	}
	return ctx, svc, st, nil
}

func (c *cli) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Email: ")
				line, err := in.ReadString('\n')
				if err != nil && line == "" {
					return errors.Wrap(err, "read email")
				}
				email = strings.TrimSpace(line)
			}
			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			password, err := readPassword(cmd.InOrStdin(), in)
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			resp, err := c.client.Login(cmd.Context(), model.Credentials{Email: email, Password: password})
			if err != nil {
				return err
			}
			if err := c.tokens.Save(credentials{Token: resp.Token, Role: resp.User.Role, Name: resp.User.Name}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", resp.User.Name, resp.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

// readPassword reads without echo from a terminal and a plain line otherwise.
func readPassword(r io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), errors.Wrap(err, "read password")
	}
	line, err := buffered.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "read password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.tokens.Remove(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) booksCmd() *cobra.Command {
	var status, subject string
	cmd := &cobra.Command{
		Use:   "books [query]",
		Short: "Search the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			books, err := c.client.ListBooks(ctx)
			if err != nil {
				return err
			}
			f := store.Filter{Status: strings.ToUpper(status), Subject: subject}
			if len(args) == 1 {
				f.Query = args[0]
			}
			w := table(cmd.OutOrStdout(), "ID", "TITLE", "AUTHOR", "SUBJECT", "QTY")
			for _, b := range view.FilterBooks(books, f) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", b.ID, b.Title, dash(b.Author), b.Category(), b.Quantity)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", view.StatusAll, "ALL, AVAILABLE or OUT")
	cmd.Flags().StringVar(&subject, "subject", "", "only books of this subject")
	return cmd
}

func (c *cli) loansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loans",
		Short: "List borrowed books and what they cost when overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, svc, st, err := c.workspace(cmd)
			if err != nil {
				return err
			}
			w := table(cmd.OutOrStdout(), "RECORD", "BOOK", "DUE", "OVERDUE", "EST. FINE")
			for _, l := range view.ActiveLoans(st.Loans.List(), svc.Calculator(), c.now()) {
				overdue := "-"
				if l.Overdue {
					overdue = fmt.Sprintf("%dd", l.DaysOverdue)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					l.Record.ID, l.Record.BookTitle(), l.Record.DueDate.Format(dateLayout), overdue, l.EstimatedFine)
			}
			return w.Flush()
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List all borrow records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, st, err := c.workspace(cmd)
			if err != nil {
				return err
			}
			w := table(cmd.OutOrStdout(), "RECORD", "BOOK", "ISSUED", "RETURNED", "STATUS", "FINE")
			for _, r := range view.History(st.Loans.List()) {
				returned := "-"
				if r.ReturnDate != nil {
					returned = r.ReturnDate.Format(dateLayout)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.0f\n",
					r.ID, r.BookTitle(), r.IssueDate.Format(dateLayout), returned, r.Status, r.Fine)
			}
			return w.Flush()
		},
	}
}

func (c *cli) issueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue <book-id>",
		Short: "Borrow a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, st, err := c.workspace(cmd)
			if err != nil {
				return err
			}
			msg, err := svc.Issue(ctx, st, args[0])
			if err != nil {
				return errors.Wrap(err, "issue failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func (c *cli) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <record-id>",
		Short: "Give a borrowed book back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, st, err := c.workspace(cmd)
			if err != nil {
				return err
			}
			p, err := svc.PreviewReturn(st, args[0])
			if err != nil {
				return errors.Wrap(err, "return failed")
			}
			if p.Overdue {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is %d day(s) overdue, estimated fine %d\n",
					p.Record.BookTitle(), p.DaysOverdue, p.EstimatedFine)
			}
			msg, err := svc.Return(ctx, st, args[0])
			if err != nil {
				return errors.Wrap(err, "return failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func (c *cli) fineCmd() *cobra.Command {
	var due, at string
	cmd := &cobra.Command{
		Use:   "fine",
		Short: "Compute the fine of a book due at --due and returned at --at",
		Args:  cobra.NoArgs,
		// fine works offline.
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.envErr
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			dueAt, err := parseDate(due)
			if err != nil {
				return errors.Wrap(err, "--due")
			}
			ref := c.now()
			if at != "" {
				if ref, err = parseDate(at); err != nil {
					return errors.Wrap(err, "--at")
				}
			}
			calc := c.env.Fine.Calculator()
			if calc == (fine.Calculator{}) {
				calc = fine.Default()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d day(s) overdue, fine %d (rate %d, cap %d)\n",
				calc.Days(dueAt, ref), calc.Fine(dueAt, ref), calc.Rate, calc.Cap)
			return nil
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD or RFC 3339")
	cmd.Flags().StringVar(&at, "at", "", "return date, now when empty")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, s)
}

func table(out io.Writer, header ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	return w
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
