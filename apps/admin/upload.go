package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/sheet"
)

func readSheet(path string) (*sheet.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer func() { _ = f.Close() }()
	return sheet.Read(f, path)
}

func (cli *commandLine) upload(ctx context.Context, sem, path string) error {
	s, err := readSheet(path)
	if err != nil {
		return err
	}
	res, err := cli.semesterSvc.Upload(ctx, sem, s)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Printf("skipped column %d %q: %s\n", w.Column, w.Header, w.Reason)
	}
	fmt.Printf("%s: %d students graded over %d subjects\n", res.Table.Name, res.Inserted, len(res.Subjects))
	return nil
}

func (cli *commandLine) ingestAttendance(ctx context.Context, sem, path string) error {
	s, err := readSheet(path)
	if err != nil {
		return err
	}
	res, err := cli.attendanceSvc.Ingest(ctx, sem, s)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d students over %d sessions\n", res.Table.Name, res.Ingested, len(res.Sessions))
	return nil
}
