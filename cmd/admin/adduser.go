package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/user"
)

// addUser creates a user of any role in both stores, then sets the prompted
// password in place of the generated starting one.
func (cli *commandLine) addUser(uname, role, email, name, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	r, err := user.ParseRole(role)
	if err != nil {
		return err
	}
	base := user.BaseUser{Uname: uname, Role: r, Email: email}

	var u user.User
	switch r {
	case user.RoleAdmin:
		u = &user.Admin{BaseUser: base}
	case user.RoleBoss:
		u = &user.Boss{BaseUser: base}
	case user.RoleTeacher:
		u = &user.Teacher{BaseUser: base, Name: name}
	case user.RoleStudent:
		return errors.New("students are created through CSV upload, not adduser")
	}

	if err = cli.reg.Refresh(ctx); err != nil {
		return err
	}
	if err = cli.reg.InsertUser(ctx, u); err != nil {
		return err
	}
	if err = cli.reg.RefreshUsers(ctx); err != nil {
		return err
	}
	return cli.reg.UpdatePassword(ctx, uname, pwd)
}
