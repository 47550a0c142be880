package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/appo-client/api"
	"github.com/jrsteele09/appo-client/appointments"
	"github.com/jrsteele09/appo-client/internal/config"
	"github.com/jrsteele09/appo-client/session"
	"github.com/jrsteele09/appo-client/token"
	"github.com/jrsteele09/appo-client/token/jwt"
	"github.com/jrsteele09/appo-client/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

type app struct {
	client  *api.Client
	tokens  *token.Custodian
	session *session.Store
	book    *appointments.Client
	stdin   io.Reader
	stdout  io.Writer
}

func newApp(cfg config.Config, storage token.Storage, stdin io.Reader, stdout io.Writer) *app {
	a := &app{
		tokens: token.NewCustodian(storage),
		stdin:  stdin,
		stdout: stdout,
	}
	a.client = api.FromConfig(cfg,
		api.WithCustodian(a.tokens),
		api.WithNavigator(func(r api.Redirect) {
			a.session.Expire(r)
			fmt.Fprintf(a.stdout, "Session expired (%s). Run `appo login` to sign in again.\n", r.Reason)
		}),
		api.WithRenewalListener(func(t *oauth2.Token) {
			a.session.SetTokens(t.AccessToken, t.RefreshToken)
		}),
	)
	a.session = session.New(a.client)
	a.book = appointments.NewClient(a.client)
	return a
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password, read from stdin when empty")
	role := fs.String("type", string(users.RoleCustomer), "account type: "+joinRoles())
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *password == "" {
		fmt.Fprint(a.stdout, "Password: ")
		line, err := bufio.NewReader(a.stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	creds := users.Credentials{Email: *email, Password: *password, UserType: users.RoleType(*role)}
	if err := a.session.Login(ctx, creds); err != nil {
		return describe(err)
	}
	u := a.session.User()
	fmt.Fprintf(a.stdout, "Signed in as %s <%s> (%s)\n", u.FullName(), u.Email, u.Role)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.stdout, "Signed out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	raw, ok := a.tokens.AccessToken(ctx)
	if !ok {
		fmt.Fprintln(a.stdout, "Not signed in")
		return nil
	}

	if payload, err := jwt.ParsePayload(raw); err != nil {
		log.Debug().Err(err).Msg("access token is not a readable JWT")
	} else {
		fmt.Fprintf(a.stdout, "Token for %s (%s), %s\n", payload.Email, payload.Role, describeExpiry(payload, time.Now()))
	}

	profile, err := a.client.Profile(ctx)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(a.stdout, "%s <%s> %s\n", profile.FullName(), profile.Email, profile.Role)
	if profile.BusinessCenterID != "" {
		fmt.Fprintf(a.stdout, "Business center: %s\n", profile.BusinessCenterID)
	}
	return nil
}

func describeExpiry(payload *jwt.Payload, now time.Time) string {
	exp := payload.ExpiresAt()
	switch {
	case exp.IsZero():
		return "no expiry"
	case payload.Expired(now):
		return fmt.Sprintf("expires %s [expired, will be renewed on the next request]", exp.Local().Format(time.RFC1123))
	default:
		return fmt.Sprintf("expires %s [valid]", exp.Local().Format(time.RFC1123))
	}
}

func (a *app) appointments(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch verb := args[0]; verb {
	case "list":
		return a.listAppointments(ctx, args[1:])
	case appointments.ActionCancel, appointments.ActionConfirm, appointments.ActionComplete:
		if len(args) != 2 {
			return errUsage
		}
		act := map[string]func(context.Context, string) (*appointments.Appointment, error){
			appointments.ActionCancel:   a.book.Cancel,
			appointments.ActionConfirm:  a.book.Confirm,
			appointments.ActionComplete: a.book.Complete,
		}[verb]
		updated, err := act(ctx, args[1])
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(a.stdout, "Appointment %s is now %s\n", updated.ID, updated.Status)
		return nil
	}
	return errUsage
}

func (a *app) listAppointments(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("appointments list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	status := fs.String("status", "", "only appointments in this status")
	limit := fs.Int("limit", 20, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	filter := appointments.Filter{Status: appointments.Status(*status), Limit: *limit, Offset: *offset}
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("unknown status %q: %w", *status, errUsage)
	}

	page, err := a.book.List(ctx, filter)
	if err != nil {
		return describe(err)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTS\tDURATION\tSTATUS\tSERVICE")
	for _, appt := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", appt.ID, appt.StartsAt.Local().Format("2006-01-02 15:04"), appt.Duration(), appt.Status, appt.ServiceID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d of %d\n", len(page.Items), page.Total)
	return nil
}

// get prints the JSON body of an arbitrary authenticated GET.
func (a *app) get(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	var body json.RawMessage
	if err := a.client.Get(ctx, args[0], &body); err != nil {
		return describe(err)
	}
	out, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, string(out))
	return nil
}

func joinRoles() string {
	roles := make([]string, len(users.Roles))
	for i, r := range users.Roles {
		roles[i] = string(r)
	}
	return strings.Join(roles, "|")
}
