package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/registry"
	"github.com/d2718/camp-demo/storage/database/academic"
	"github.com/d2718/camp-demo/storage/database/credentials"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	cfg         *core.Config
	log         core.Logger
	academic    *academic.Store
	credentials *credentials.Store
	reg         *registry.Registry
	mail        core.EmailService
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate - bring both store schemas up to date and ensure the default admin")
	fmt.Println("  adduser -uname UNAME -role ROLE [-email EMAIL] [-name NAME] - create a user; the password will be prompted next")
	fmt.Println("  resetpassword -uname UNAME - reset a user's password; the password will be prompted next")
	fmt.Println("  loadcourse -file PATH - load a course file into the catalog")
	fmt.Println("  sendprogress [-teacher UNAME] [-student UNAME] - email parent progress reports")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("uname", "", "The new user's uname.")
	addUserRole := addUserCmd.String("role", "", "One of Admin, Boss, Teacher, Student.")
	addUserEmail := addUserCmd.String("email", "", "The new user's email address.")
	addUserName := addUserCmd.String("name", "", "Display name (teachers only).")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("uname", "", "The user's uname. The password will be prompted next.")

	loadCourseCmd := flag.NewFlagSet("loadcourse", flag.ExitOnError)
	loadCourseFile := loadCourseCmd.String("file", "", "Path of the course file to load.")

	sendProgressCmd := flag.NewFlagSet("sendprogress", flag.ExitOnError)
	sendProgressTeacher := sendProgressCmd.String("teacher", "", "Send reports for every student of this teacher.")
	sendProgressStudent := sendProgressCmd.String("student", "", "Send a report for this one student.")

	switch args[1] {
	case "migrate":
		return cli.migrate()
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.addUser(*addUserUname, *addUserRole, *addUserEmail, *addUserName, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "loadcourse":
		if err := loadCourseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loadCourseFile == "" {
			loadCourseCmd.Usage()
			return errHelp
		}
		return cli.loadCourse(*loadCourseFile)
	case "sendprogress":
		if err := sendProgressCmd.Parse(args[2:]); err != nil {
			return err
		}
		if (*sendProgressTeacher == "") == (*sendProgressStudent == "") {
			sendProgressCmd.Usage()
			return errHelp
		}
		return cli.sendProgress(*sendProgressTeacher, *sendProgressStudent)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errors.New("empty password")
	}
	return string(pwd), nil
}
