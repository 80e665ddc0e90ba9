package main

import (
	"context"
	"fmt"

	"github.com/trezcool/gradebook/core/account"
)

// addUser signs up an account, applying the same validation as the API.
func (cli *commandLine) addUser(ctx context.Context, uname, role, pwd string) error {
	acc, err := cli.accountSvc.Signup(ctx, account.NewAccount{
		Username:        uname,
		Password:        pwd,
		PasswordConfirm: pwd,
		Role:            account.Role(role),
	})
	if err != nil {
		return err
	}
	fmt.Printf("created %s account %q (%s)\n", acc.Role, acc.Username, acc.ID)
	return nil
}
