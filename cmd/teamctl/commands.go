// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/taibuivan/teamdesk/internal/app"
	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/apperr"
	"github.com/taibuivan/teamdesk/internal/roster"
	"github.com/taibuivan/teamdesk/internal/tokens"
	"github.com/taibuivan/teamdesk/internal/watch"
)

// errUsage marks a flag error that has already been reported.
var errUsage = errors.New("usage")

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in: run 'teamctl login' first")

// command is one teamctl subcommand.
type command struct {
	summary string
	run     func(ctx context.Context, application *app.App, args []string) error
}

// stdout is where command results are printed.
var stdout io.Writer = os.Stdout

var commands = map[string]command{
	"login":         {"Log in with -email and -password", runLogin},
	"register":      {"Create the first account and its team", runRegister},
	"logout":        {"End the session", runLogout},
	"whoami":        {"Re-fetch and print the current user", runWhoAmI},
	"status":        {"Show session, token expiry, and readiness", runStatus},
	"roster":        {"List team members and pending invitations", runRoster},
	"invite":        {"Invite -email with -role (member|admin)", runInvite},
	"set-role":      {"Change member -id to -role", runSetRole},
	"remove":        {"Remove member -id from the team", runRemove},
	"accept-invite": {"Redeem an invitation -token into an account", runAcceptInvite},
	"watch":         {"Keep session and roster fresh on WATCH_SCHEDULE", runWatch},
}

// # Flag Helpers

// parse parses args into set, reporting errors through errUsage.
func parse(set *flag.FlagSet, args []string) error {
	set.SetOutput(os.Stderr)
	if err := set.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// required fails when any named flag is empty.
func required(set *flag.FlagSet, names ...string) error {
	var missing []string
	for _, name := range names {
		if f := set.Lookup(name); f != nil && strings.TrimSpace(f.Value.String()) == "" {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}

// # Authentication

func runLogin(ctx context.Context, application *app.App, args []string) error {
	set := flag.NewFlagSet("login", flag.ContinueOnError)
	email := set.String("email", "", "account email")
	password := set.String("password", "", "account password")
	if err := parse(set, args); err != nil {
		return err
	}
	if err := required(set, "email", "password"); err != nil {
		return err
	}

	if err := application.Session.Login(ctx, model.LoginRequest{Email: *email, Password: *password}); err != nil {
		return err
	}

	printUser(application.Session.State().User)
	return nil
}

func runRegister(ctx context.Context, application *app.App, args []string) error {
	set := flag.NewFlagSet("register", flag.ContinueOnError)
	email := set.String("email", "", "account email")
	password := set.String("password", "", "account password")
	first := set.String("first", "", "first name")
	last := set.String("last", "", "last name")
	if err := parse(set, args); err != nil {
		return err
	}
	if err := required(set, "email", "password", "first", "last"); err != nil {
		return err
	}

	err := application.Session.Register(ctx, model.RegisterRequest{
		Email:     *email,
		Password:  *password,
		FirstName: *first,
		LastName:  *last,
	})
	if err != nil {
		return err
	}

	printUser(application.Session.State().User)
	return nil
}

func runLogout(ctx context.Context, application *app.App, _ []string) error {
	application.Session.Logout(ctx)
	fmt.Fprintln(stdout, "Logged out.")
	return nil
}

func runWhoAmI(ctx context.Context, application *app.App, _ []string) error {
	if !application.Session.State().IsAuthenticated {
		return errNotLoggedIn
	}

	if err := application.Session.RefreshUser(ctx); err != nil {
		return err
	}

	printUser(application.Session.State().User)
	return nil
}

func runStatus(ctx context.Context, application *app.App, _ []string) error {
	state := application.Session.State()

	writer := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	if state.IsAuthenticated && state.User != nil {
		fmt.Fprintf(writer, "session\tauthenticated as %s <%s>\n", state.User.DisplayName(), state.User.Email)
	} else {
		fmt.Fprintf(writer, "session\tanonymous\n")
	}

	if expiry, ok := application.Tokens.AccessExpiry(ctx); ok {
		fmt.Fprintf(writer, "access token\texpires %s (in %s)\n", expiry.Local().Format(time.RFC3339), time.Until(expiry).Round(time.Second))
	} else if _, ok := application.Tokens.Get(ctx, tokens.Access); ok {
		fmt.Fprintf(writer, "access token\tpresent, expiry unknown\n")
	} else {
		fmt.Fprintf(writer, "access token\tnone\n")
	}

	report := application.CheckReadiness(ctx)
	for _, check := range report.Checks {
		outcome := "ok"
		if !check.IsOK {
			outcome = "failed: " + check.Error
		}
		fmt.Fprintf(writer, "%s\t%s\n", check.Name, outcome)
	}
	fmt.Fprintf(writer, "status\t%s\n", report.Status)

	return writer.Flush()
}

// # Team

func runRoster(ctx context.Context, application *app.App, _ []string) error {
	if err := reload(ctx, application); err != nil {
		return err
	}

	printRoster(application.Roster.State())
	return nil
}

func runInvite(ctx context.Context, application *app.App, args []string) error {
	set := flag.NewFlagSet("invite", flag.ContinueOnError)
	email := set.String("email", "", "invitee email")
	role := set.String("role", string(model.RoleMember), "member or admin")
	if err := parse(set, args); err != nil {
		return err
	}
	if err := required(set, "email"); err != nil {
		return err
	}

	teamID, ok := application.Session.CurrentTeamID()
	if !ok {
		return errNotLoggedIn
	}

	request := model.InviteRequest{Email: *email, Role: model.Role(*role), TeamID: teamID}
	if err := application.Roster.Invite(ctx, request); err != nil {
		return err
	}

	pending := application.Roster.State().PendingInvitations
	invitation := pending[0]
	fmt.Fprintf(stdout, "Invited %s as %s (expires %s).\n", invitation.Email, invitation.Role, invitation.ExpiresAt.Local().Format(time.RFC3339))
	if invitation.Token != "" {
		fmt.Fprintf(stdout, "Invitation token: %s\n", invitation.Token)
	}
	return nil
}

func runSetRole(ctx context.Context, application *app.App, args []string) error {
	set := flag.NewFlagSet("set-role", flag.ContinueOnError)
	id := set.String("id", "", "member id")
	role := set.String("role", "", "member or admin")
	if err := parse(set, args); err != nil {
		return err
	}
	if err := required(set, "id", "role"); err != nil {
		return err
	}

	if err := reload(ctx, application); err != nil {
		return err
	}

	if err := application.Roster.UpdateMemberRole(ctx, *id, model.RoleUpdate{Role: model.Role(*role)}); err != nil {
		return err
	}

	printRoster(application.Roster.State())
	return nil
}

func runRemove(ctx context.Context, application *app.App, args []string) error {
	set := flag.NewFlagSet("remove", flag.ContinueOnError)
	id := set.String("id", "", "member id")
	if err := parse(set, args); err != nil {
		return err
	}
	if err := required(set, "id"); err != nil {
		return err
	}

	if err := reload(ctx, application); err != nil {
		return err
	}

	if err := application.Roster.RemoveMember(ctx, *id); err != nil {
		return err
	}

	printRoster(application.Roster.State())
	return nil
}

func runAcceptInvite(ctx context.Context, application *app.App, args []string) error {
	set := flag.NewFlagSet("accept-invite", flag.ContinueOnError)
	token := set.String("token", "", "invitation token")
	first := set.String("first", "", "first name")
	last := set.String("last", "", "last name")
	password := set.String("password", "", "new account password")
	if err := parse(set, args); err != nil {
		return err
	}
	if err := required(set, "token", "first", "last", "password"); err != nil {
		return err
	}

	response, err := application.Team.AcceptInvitation(ctx, *token, model.AcceptInvitationRequest{
		FirstName: *first,
		LastName:  *last,
		Password:  *password,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s. Log in as %s.\n", response.Message, response.User.Email)
	return nil
}

// # Watch

func runWatch(ctx context.Context, application *app.App, _ []string) error {
	if !application.Session.State().IsAuthenticated {
		return errNotLoggedIn
	}

	scheduler, err := watch.New(application.Config.WatchSchedule, application.Session, application.Roster, application.Logger, func(err error) {
		stamp := time.Now().Format(time.TimeOnly)
		if err != nil {
			fmt.Fprintf(stdout, "[%s] %s\n", stamp, apperr.Normalize(err).Message)
			return
		}
		state := application.Roster.State()
		fmt.Fprintf(stdout, "[%s] %d members, %d pending invitations\n", stamp, len(state.Members), len(state.PendingInvitations))
	})
	if err != nil {
		return err
	}

	if err := scheduler.Tick(ctx); err != nil {
		return err
	}
	printRoster(application.Roster.State())

	scheduler.Start()
	<-ctx.Done()
	scheduler.Stop()

	return nil
}

// # Output

// reload loads the signed-in user's roster, mapping a missing team to errNotLoggedIn.
func reload(ctx context.Context, application *app.App) error {
	err := application.Roster.Reload(ctx)
	if errors.Is(err, roster.ErrNoTeam) {
		return errNotLoggedIn
	}
	return err
}

func printUser(user *model.User) {
	if user == nil {
		return
	}

	writer := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(writer, "id\t%s\n", user.ID)
	fmt.Fprintf(writer, "name\t%s\n", user.DisplayName())
	fmt.Fprintf(writer, "email\t%s\n", user.Email)
	fmt.Fprintf(writer, "role\t%s\n", user.Role)
	if user.TeamID != nil {
		fmt.Fprintf(writer, "team\t%d\n", *user.TeamID)
	}
	_ = writer.Flush()
}

func printRoster(state roster.State) {
	writer := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(writer, "MEMBERS (team %d)\n", state.TeamID)
	fmt.Fprintln(writer, "ID\tNAME\tEMAIL\tROLE\tSTATUS")
	for _, member := range state.Members {
		name := (&model.User{FirstName: member.FirstName, LastName: member.LastName}).DisplayName()
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", member.ID, name, member.Email, member.Role, member.Status)
	}

	fmt.Fprintln(writer, "\nPENDING INVITATIONS")
	fmt.Fprintln(writer, "ID\tEMAIL\tROLE\tEXPIRES")
	for _, invitation := range state.PendingInvitations {
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\n", invitation.ID, invitation.Email, invitation.Role, invitation.ExpiresAt.Local().Format(time.DateOnly))
	}

	_ = writer.Flush()
}
