// Package main is the entry point for the trend pipeline binary.
//
// @title Trend Pipeline API
// @version 1.0
// @description Runs tabular sources through aggregation and linear trend fitting and serves the stored results.
// @BasePath /api/v1
package main

import "os"

func main() {
	os.Exit(execute())
}
