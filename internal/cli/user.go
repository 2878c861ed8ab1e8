package cli

import "context"

type UserAddCmd struct {
	Name     string `arg:"" help:"Display name."`
	Username string `required:"" help:"Unique username."`
	Email    string `required:"" help:"Unique email address; invitations are matched on it."`
}

func (c *UserAddCmd) Run(ctx *Context) error {
	u, err := ctx.Engine.CreateUser(context.Background(), c.Name, c.Username, c.Email)
	if err != nil {
		return err
	}
	ctx.printf("Added user: %s (%s)\n", u.Username, u.ID)
	return nil
}

type HabitAddCmd struct {
	Name        string `arg:"" help:"Habit name."`
	User        string `required:"" help:"Owner user id."`
	Description string `help:"Free-form description."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	h, err := ctx.Engine.CreateHabit(context.Background(), c.User, c.Name, c.Description)
	if err != nil {
		return err
	}
	ctx.printf("Added habit: %s (%s)\n", h.Name, h.ID)
	return nil
}
