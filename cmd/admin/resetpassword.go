package main

import "context"

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	if err := cli.reg.RefreshUsers(ctx); err != nil {
		return err
	}
	return cli.reg.UpdatePassword(ctx, uname, pwd)
}
