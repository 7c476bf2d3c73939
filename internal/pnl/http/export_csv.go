package http

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

const csvBufferSize = 32 * 1024

func writeReportCSV(w io.Writer, view ReportView) error {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true

	meta := [][]string{
		{"# Profit & Loss"},
		{"# Level", view.Level},
		{"# Key", view.Key},
		{"# Period", view.Period},
		{"# Generated", view.Generated},
	}
	for _, row := range meta {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	header := []string{
		"Node", "Name", "Account",
		"Month Actual", "Month Actual %",
		"Month Budget", "Month Budget %",
		"YTD Actual", "YTD Actual %",
		"YTD Budget", "YTD Budget %",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writeNodeCSV(writer, view.Root); err != nil {
		return err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

func writeNodeCSV(writer *csv.Writer, node NodeView) error {
	summary := fmt.Sprintf("%s (%s districts, %s facilities)",
		node.Name, strconv.Itoa(node.Districts), strconv.Itoa(node.Facilities))
	for _, row := range node.Rows {
		record := []string{
			node.Level, summary, row.Label,
			row.MonthActual, row.MonthActualPct,
			row.MonthBudget, row.MonthBudgetPct,
			row.YTDActual, row.YTDActualPct,
			row.YTDBudget, row.YTDBudgetPct,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	for _, child := range node.Children {
		if err := writeNodeCSV(writer, child); err != nil {
			return err
		}
	}
	return nil
}
