package main

import (
	"context"
	"fmt"

	"github.com/zachetka/backend/core/course"
)

func (cli *commandLine) addCourse(name, shortName, okMethod string, threshold float64, openRegistration bool) error {
	nc := course.NewCourse{
		Name:               name,
		ShortName:          shortName,
		OKMethod:           okMethod,
		OKThresholdPercent: threshold,
		IsOpenRegistration: openRegistration,
	}
	if err := nc.Validate(); err != nil {
		return err
	}
	crs, err := cli.courseSvc.Create(context.Background(), nc)
	if err != nil {
		return err
	}
	fmt.Printf("course %q created (id %d)\n", crs.ShortName, crs.ID)
	return nil
}
