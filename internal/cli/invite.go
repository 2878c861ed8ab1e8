package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/utils"
)

type InviteCreateCmd struct {
	Plan  string `arg:"" help:"Plan id to share."`
	User  string `required:"" help:"Sender user id; must own the plan."`
	Email string `required:"" help:"Recipient email."`
	Name  string `help:"Recipient name."`
}

func (c *InviteCreateCmd) Run(ctx *Context) error {
	inv, err := ctx.Engine.CreateInvitation(context.Background(), c.User, c.Plan, c.Name, c.Email)
	if err != nil {
		return err
	}
	ctx.printf("Invitation %s sent to %s\n", inv.ID, inv.RecipientEmail)
	return nil
}

type InviteAcceptCmd struct {
	Invitation string `arg:"" help:"Invitation id."`
	User       string `required:"" help:"Recipient user id."`
	Today      string `help:"Reference date (YYYY-MM-DD or 'today')." default:"today"`
	Yes        bool   `short:"y" help:"Accept without confirmation."`
}

func (c *InviteAcceptCmd) Run(ctx *Context) error {
	today, err := ctx.resolveDate(c.Today)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := confirm(fmt.Sprintf("Accept invitation %s and copy the plan?", c.Invitation))
		if err != nil {
			return err
		}
		if !ok {
			ctx.println("Cancelled")
			return nil
		}
	}

	inv, err := ctx.Engine.AcceptInvitation(context.Background(), c.Invitation, c.User, today)
	if err != nil {
		return err
	}
	ctx.printf("%s Accepted invitation %s\n", doneStyle.Render("✓"), inv.ID)
	return nil
}

type InviteDeclineCmd struct {
	Invitation string `arg:"" help:"Invitation id."`
	User       string `required:"" help:"Recipient user id."`
	Yes        bool   `short:"y" help:"Decline without confirmation."`
}

func (c *InviteDeclineCmd) Run(ctx *Context) error {
	if !c.Yes {
		ok, err := confirm(fmt.Sprintf("Decline invitation %s?", c.Invitation))
		if err != nil {
			return err
		}
		if !ok {
			ctx.println("Cancelled")
			return nil
		}
	}

	inv, err := ctx.Engine.DeclineInvitation(context.Background(), c.Invitation, c.User)
	if err != nil {
		return err
	}
	ctx.printf("Declined invitation %s\n", inv.ID)
	return nil
}

type InviteListCmd struct {
	User string `arg:"" help:"User id."`
	Sent bool   `help:"List invitations the user sent instead of pending ones received."`
}

func (c *InviteListCmd) Run(ctx *Context) error {
	var (
		invs []models.InvitationDetails
		err  error
	)
	if c.Sent {
		invs, err = ctx.Engine.SentInvitations(context.Background(), c.User)
	} else {
		invs, err = ctx.Engine.ReceivedInvitations(context.Background(), c.User)
	}
	if err != nil {
		return err
	}
	if len(invs) == 0 {
		ctx.println("No invitations found")
		return nil
	}

	rows := make([][]string, 0, len(invs))
	for _, inv := range invs {
		rows = append(rows, []string{
			inv.ID,
			inv.Plan.Habit.Name,
			inv.Sender.Username,
			inv.RecipientEmail,
			utils.FormatDate(inv.Plan.StartDate) + ".." + utils.FormatDate(inv.Plan.EndDate),
			string(inv.Status),
		})
	}
	ctx.println(renderTable([]string{"ID", "Habit", "From", "To", "Plan", "Status"}, rows))
	return nil
}

// confirm is swapped out in tests
var confirm = func(title string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeBase())

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("interactive form error: %w", err)
	}
	return ok, nil
}
