package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) recompute(shortName string) error {
	ctx := context.Background()
	crs, err := cli.courseSvc.GetByShortName(ctx, shortName)
	if err != nil {
		return err
	}
	if err = cli.resultsSvc.UpdateCourseResults(ctx, crs); err != nil {
		return err
	}
	fmt.Printf("course %q is consistent\n", crs.ShortName)
	return nil
}
