package runset

import (
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// FilenameRegexp matches SPIDR raw data filenames of the form
// "[run-name_]device-YYMMDD-HHMMSS-N.dat", e.g.
// "myrun_W0001_H03-230615-142233-1.dat". Capture groups: (1) run name
// (possibly empty), (2) device id, (3-5) date, (6-8) time, (9) file index
// within the run.
var FilenameRegexp = regexp.MustCompile(`(\w*?)_*(\w\d{4}_\w\d{2})-(\d{2})(\d{2})(\d{2})-(\d{2})(\d{2})(\d{2})-(\d*)\.dat`)

// FileInfo describes one matched raw .dat file.
type FileInfo struct {
	RunName   string // empty if the filename carried no run name
	Device    string
	StartTime time.Time
	FileInRun uint32
	Path      string
}

// ParseFilename extracts a FileInfo from path, matching against
// FilenameRegexp. It returns ok=false for any path that doesn't match,
// mirroring the reference tool's behaviour of silently skipping
// unrecognised files in a glob.
func ParseFilename(path string) (FileInfo, bool) {
	base := filepath.Base(path)
	m := FilenameRegexp.FindStringSubmatch(base)
	if m == nil {
		return FileInfo{}, false
	}

	year, err1 := strconv.Atoi(m[3])
	month, err2 := strconv.Atoi(m[4])
	day, err3 := strconv.Atoi(m[5])
	hour, err4 := strconv.Atoi(m[6])
	minute, err5 := strconv.Atoi(m[7])
	second, err6 := strconv.Atoi(m[8])
	fileInRun, err7 := strconv.ParseUint(m[9], 10, 32)

	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil || err7 != nil {
		return FileInfo{}, false
	}

	startTime := time.Date(2000+year, time.Month(month), day, hour, minute, second, 0, time.UTC)

	return FileInfo{
		RunName:   m[1],
		Device:    m[2],
		StartTime: startTime,
		FileInRun: uint32(fileInRun),
		Path:      path,
	}, true
}
