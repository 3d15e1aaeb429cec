package asar

// ProgressStage identifies the current phase of a pack or extract operation.
type ProgressStage uint8

const (
	// StageCreatingTempFile indicates the scratch content file is being created.
	StageCreatingTempFile ProgressStage = iota + 1

	// StageBuildingTree indicates the source directory is being walked and
	// file contents are being written to the scratch file.
	StageBuildingTree

	// StageCreatingArchive indicates the destination archive is being created.
	StageCreatingArchive

	// StageWritingHeader indicates the header is being written.
	StageWritingHeader

	// StageWritingContents indicates the content region is being written.
	StageWritingContents

	// StagePacked indicates the archive was written successfully.
	StagePacked

	// StageReadingHeader indicates the archive header is being read.
	StageReadingHeader

	// StageExtracting indicates directories and files are being materialized.
	StageExtracting

	// StageResolvingSymlinks indicates queued symlinks are being resolved.
	StageResolvingSymlinks

	// StageExtracted indicates the archive was extracted successfully.
	StageExtracted
)

var stageLabels = map[ProgressStage]string{
	StageCreatingTempFile:  "Creating temporary file for holding the archive data...",
	StageBuildingTree:      "Creating the directory structure and writing the file contents to the temporary file (may take a while)...",
	StageCreatingArchive:   "Creating archive...",
	StageWritingHeader:     "Writing the archive header...",
	StageWritingContents:   "Writing the archive contents (may take a while)...",
	StagePacked:            "The archive has been successfully created!",
	StageReadingHeader:     "Getting archive data...",
	StageExtracting:        "Extracting...",
	StageResolvingSymlinks: "Handling symlinks...",
	StageExtracted:         "The archive has been successfully extracted!",
}

// String returns the human-readable label of the stage.
func (s ProgressStage) String() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return "unknown stage"
}

// ProgressEvent represents a progress update during pack or extract operations.
type ProgressEvent struct {
	// Stage is the current phase.
	Stage ProgressStage

	// Path is the slash-separated archive path being processed, if any.
	Path string

	// FilesDone is the number of files processed so far.
	FilesDone int

	// BytesDone is the number of content bytes processed so far.
	BytesDone uint64
}

// ProgressFunc receives progress updates during operations.
// Operations are sequential, so calls are never concurrent.
type ProgressFunc func(ProgressEvent)
