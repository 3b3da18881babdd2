package export

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// HourColumn is the leading column of a timetable grid dataset.
const HourColumn = "Hour"

// GridDataset lays a timetable out with one row per hour and one column per day.
// cells is indexed [hour][day].
func GridDataset(days, hours []string, cells [][]string) Dataset {
	headers := make([]string, 0, len(days)+1)
	headers = append(headers, HourColumn)
	headers = append(headers, days...)

	rows := make([]map[string]string, 0, len(hours))
	for h, hour := range hours {
		row := map[string]string{HourColumn: hour}
		for d, day := range days {
			if h < len(cells) && d < len(cells[h]) {
				row[day] = cells[h][d]
			}
		}
		rows = append(rows, row)
	}
	return Dataset{Headers: headers, Rows: rows}
}
