package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/student"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	studentSvc *student.Service
	courseSvc  *course.Service
	resultsSvc *results.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate - apply pending database migrations")
	fmt.Println("  addstudent -login LOGIN -name NAME -contestlogin LOGIN [-telegram ID] - register a student")
	fmt.Println("  addcourse -name NAME -short SHORT [-okmethod CONTESTS_OK|SCORE_SUM] [-threshold PCT] [-closed] - create a course")
	fmt.Println("  recompute -course SHORT - re-sum and verify stored results for a course")
	fmt.Println("  hashpassword - hash the operator password for the config")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addStudentCmd := flag.NewFlagSet("addstudent", flag.ExitOnError)
	addStudentLogin := addStudentCmd.String("login", "", "The student's login.")
	addStudentName := addStudentCmd.String("name", "", "The student's full name.")
	addStudentContest := addStudentCmd.String("contestlogin", "", "The student's contest platform login.")
	addStudentTelegram := addStudentCmd.String("telegram", "", "The student's telegram id (optional).")

	addCourseCmd := flag.NewFlagSet("addcourse", flag.ExitOnError)
	addCourseName := addCourseCmd.String("name", "", "The course name.")
	addCourseShort := addCourseCmd.String("short", "", "The course short name.")
	addCourseOKMethod := addCourseCmd.String("okmethod", course.OKMethodContestsOK, "The pass criterion: CONTESTS_OK or SCORE_SUM.")
	addCourseThreshold := addCourseCmd.Float64("threshold", 100, "The pass threshold in percent.")
	addCourseClosed := addCourseCmd.Bool("closed", false, "Disable open registration.")

	recomputeCmd := flag.NewFlagSet("recompute", flag.ExitOnError)
	recomputeCourse := recomputeCmd.String("course", "", "The course short name.")

	switch args[1] {
	case "migrate":
		return cli.migrate()

	case "addstudent":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStudentLogin == "" || *addStudentName == "" || *addStudentContest == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		return cli.addStudent(*addStudentLogin, *addStudentName, *addStudentContest, *addStudentTelegram)

	case "addcourse":
		if err := addCourseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCourseName == "" || *addCourseShort == "" {
			addCourseCmd.Usage()
			return errHelp
		}
		return cli.addCourse(*addCourseName, *addCourseShort, *addCourseOKMethod, *addCourseThreshold, !*addCourseClosed)

	case "recompute":
		if err := recomputeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *recomputeCourse == "" {
			recomputeCmd.Usage()
			return errHelp
		}
		return cli.recompute(*recomputeCourse)

	case "hashpassword":
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			return errHelp
		}
		return cli.hashPassword(string(pwd))

	default:
		cli.printUsage()
		return errHelp
	}
}
