package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/gradebook/core/account"
	"github.com/trezcool/gradebook/core/attendance"
	"github.com/trezcool/gradebook/core/semester"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db            *sqlx.DB
	accountSvc    account.Service
	semesterSvc   semester.Service
	attendanceSvc attendance.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) over the embedded migrations")
	fmt.Println("  adduser -username USERNAME -role student|teacher - create an account")
	fmt.Println("  upload -semester SEMESTER -file MARKS.xlsx|csv - grade a gradebook sheet and replace the semester's marks")
	fmt.Println("  attendance -semester SEMESTER -file ATTENDANCE.xlsx|csv - merge an attendance sheet into the semester's register")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The account's username. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", string(account.RoleTeacher), "The account's role: student or teacher.")

	uploadCmd := flag.NewFlagSet("upload", flag.ExitOnError)
	uploadSem := uploadCmd.String("semester", "", "The semester the marks belong to, e.g. 3 or sem-3.")
	uploadFile := uploadCmd.String("file", "", "Path to the gradebook sheet (.xlsx or .csv).")

	attendanceCmd := flag.NewFlagSet("attendance", flag.ExitOnError)
	attendanceSem := attendanceCmd.String("semester", "", "The semester the register belongs to.")
	attendanceFile := attendanceCmd.String("file", "", "Path to the attendance sheet (.xlsx or .csv).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserUname, *addUserRole, string(pwd))
	case "upload":
		if err := uploadCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uploadSem == "" || *uploadFile == "" {
			uploadCmd.Usage()
			return errHelp
		}
		return cli.upload(ctx, *uploadSem, *uploadFile)
	case "attendance":
		if err := attendanceCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *attendanceSem == "" || *attendanceFile == "" {
			attendanceCmd.Usage()
			return errHelp
		}
		return cli.ingestAttendance(ctx, *attendanceSem, *attendanceFile)
	default:
		cli.printUsage()
		return errHelp
	}
}
