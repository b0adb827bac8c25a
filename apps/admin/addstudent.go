package main

import (
	"context"
	"fmt"

	"github.com/zachetka/backend/core/student"
)

func (cli *commandLine) addStudent(login, fullName, contestLogin, telegramID string) error {
	ns := student.NewStudent{
		Login:        login,
		FullName:     fullName,
		ContestLogin: contestLogin,
		TelegramID:   telegramID,
	}
	if err := ns.Validate(cli.studentSvc); err != nil {
		return err
	}
	std, err := cli.studentSvc.Create(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Printf("student %q created (id %d)\n", std.Login, std.ID)
	return nil
}
