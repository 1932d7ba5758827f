package net

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSVLogger logs per-epoch stats to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool

	file   *os.File
	writer *csv.Writer
	start  time.Time
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
	}
}

func (c *CSVLogger) OnTrainBegin(n *Network) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		n.Logger().Printf("csv logger: open %s: %v", c.Filename, err)
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		c.writer.Write([]string{"epoch", "loss", "loss_stddev", "learning_rate", "time_seconds"})
		c.writer.Flush()
	}
}

func (c *CSVLogger) OnEpochEnd(stats EpochStats, n *Network) {
	if c.writer == nil {
		return
	}

	record := []string{
		strconv.Itoa(stats.Epoch),
		strconv.FormatFloat(stats.Loss, 'f', 6, 64),
		strconv.FormatFloat(stats.LossStdDev, 'f', 6, 64),
		strconv.FormatFloat(float64(stats.LearningRate), 'g', -1, 32),
		strconv.FormatFloat(time.Since(c.start).Seconds(), 'f', 2, 64),
	}

	if err := c.writer.Write(record); err != nil {
		n.Logger().Printf("csv logger: write record: %v", err)
	}
	c.writer.Flush()
}

func (c *CSVLogger) OnTrainEnd(*Network) {
	if c.file != nil {
		c.writer.Flush()
		c.file.Close()
		c.file = nil
		c.writer = nil
	}
}
