// Package export writes trial records to Arrow IPC files for columnar
// analysis outside the engine.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/illusim/internal/diffusion"
	"github.com/nvandessel/illusim/internal/experiment"
)

// TrialSchema is the Arrow schema of one trial record row.
var TrialSchema = arrow.NewSchema([]arrow.Field{
	{Name: "trial", Type: arrow.PrimitiveTypes.Int32},
	{Name: "influencers", Type: arrow.PrimitiveTypes.Int32},
	{Name: "fraction", Type: arrow.PrimitiveTypes.Float64},
	{Name: "static_illusion", Type: arrow.PrimitiveTypes.Int32},
	{Name: "final_illusion", Type: arrow.PrimitiveTypes.Int32},
	{Name: "rounds", Type: arrow.PrimitiveTypes.Int32},
	{Name: "halt", Type: arrow.BinaryTypes.String},
}, nil)

// WriteTrials writes records to w as an Arrow IPC file with a single
// record batch.
func WriteTrials(w io.WriteSeeker, records []experiment.Trial) error {
	mem := memory.NewGoAllocator()

	b := array.NewRecordBuilder(mem, TrialSchema)
	defer b.Release()

	for _, rec := range records {
		b.Field(0).(*array.Int32Builder).Append(int32(rec.Index))
		b.Field(1).(*array.Int32Builder).Append(int32(rec.Influencers))
		b.Field(2).(*array.Float64Builder).Append(rec.Fraction)
		b.Field(3).(*array.Int32Builder).Append(int32(rec.StaticIllusion))
		b.Field(4).(*array.Int32Builder).Append(int32(rec.FinalIllusion))
		b.Field(5).(*array.Int32Builder).Append(int32(rec.Rounds))
		b.Field(6).(*array.StringBuilder).Append(string(rec.Halt))
	}

	rec := b.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(TrialSchema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("failed to open arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	return fw.Close()
}

// WriteTrialsFile writes records to an Arrow IPC file at path.
func WriteTrialsFile(path string, records []experiment.Trial) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteTrials(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadTrials reads back every trial record from an Arrow IPC file written
// by WriteTrials.
func ReadTrials(r ipc.ReadAtSeeker) ([]experiment.Trial, error) {
	rdr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow reader: %w", err)
	}
	defer rdr.Close()

	var out []experiment.Trial
	for i := 0; i < rdr.NumRecords(); i++ {
		rec, err := rdr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}

		trials := rec.Column(0).(*array.Int32)
		influencers := rec.Column(1).(*array.Int32)
		fractions := rec.Column(2).(*array.Float64)
		statics := rec.Column(3).(*array.Int32)
		finals := rec.Column(4).(*array.Int32)
		rounds := rec.Column(5).(*array.Int32)
		halts := rec.Column(6).(*array.String)

		for row := 0; row < int(rec.NumRows()); row++ {
			out = append(out, experiment.Trial{
				Index:          int(trials.Value(row)),
				Influencers:    int(influencers.Value(row)),
				Fraction:       fractions.Value(row),
				StaticIllusion: int(statics.Value(row)),
				FinalIllusion:  int(finals.Value(row)),
				Rounds:         int(rounds.Value(row)),
				Halt:           diffusion.HaltReason(halts.Value(row)),
			})
		}
	}
	return out, nil
}
