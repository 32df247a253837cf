package main

import "context"

// migrate brings both store schemas up to date, then makes sure the
// configured default admin can log in.
func (cli *commandLine) migrate() error {
	if err := cli.academic.Migrate(); err != nil {
		return err
	}
	if err := cli.credentials.Migrate(); err != nil {
		return err
	}

	ctx := context.Background()
	if err := cli.reg.Refresh(ctx); err != nil {
		return err
	}
	return cli.reg.EnsureDefaultAdmin(ctx)
}
