package mpd

import (
	"sort"
)

type handlerFunc func(c *conn, args []string) (*Response, error)

// command is a command table entry. maxArgs < 0 means unbounded.
type command struct {
	handler handlerFunc
	minArgs int
	maxArgs int
}

// commands is the fixed command table. It is filled in init because the
// "commands" handler reads it.
var commands map[string]command

func init() {
	commands = map[string]command{
		// status and connection
		"ping":        {cmdPing, 0, 0},
		"status":      {cmdStatus, 0, 0},
		"stats":       {cmdStats, 0, 0},
		"outputs":     {cmdOutputs, 0, 0},
		"decoders":    {cmdDecoders, 0, 0},
		"commands":    {cmdCommands, 0, 0},
		"notcommands": {cmdNotCommands, 0, 0},
		"tagtypes":    {cmdTagTypes, 0, -1},
		"urlhandlers": {cmdURLHandlers, 0, 0},
		"clearerror":  {cmdClearError, 0, 0},
		"idle":        {notInCommandList, 0, -1},
		"noidle":      {notInCommandList, 0, 0},
		"close":       {notInCommandList, 0, 0},

		// playback options
		"repeat":  {cmdRepeat, 1, 1},
		"random":  {cmdRandom, 1, 1},
		"single":  {cmdSingle, 1, 1},
		"consume": {cmdConsume, 1, 1},

		// playback
		"play":     {cmdPlay, 0, 1},
		"playid":   {cmdPlayID, 0, 1},
		"pause":    {cmdPause, 0, 1},
		"stop":     {cmdStop, 0, 0},
		"next":     {cmdNext, 0, 0},
		"previous": {cmdPrevious, 0, 0},
		"seek":     {cmdSeek, 2, 2},
		"seekid":   {cmdSeekID, 2, 2},
		"seekcur":  {cmdSeekCur, 1, 1},
		"getvol":   {cmdGetVol, 0, 0},
		"setvol":   {cmdSetVol, 1, 1},
		"volume":   {cmdVolume, 1, 1},

		// queue
		"add":          {cmdAdd, 1, 2},
		"addid":        {cmdAddID, 1, 2},
		"delete":       {cmdDelete, 1, 1},
		"deleteid":     {cmdDeleteID, 1, 1},
		"clear":        {cmdClear, 0, 0},
		"playlistinfo": {cmdPlaylistInfo, 0, 1},
		"playlistid":   {cmdPlaylistID, 0, 1},
		"plchanges":    {cmdPlChanges, 1, 2},
		"playlist":     {cmdPlaylist, 0, 0},
		"currentsong":  {cmdCurrentSong, 0, 0},

		// database
		"find":             {cmdFind, 1, -1},
		"search":           {cmdSearch, 1, -1},
		"findadd":          {cmdFindAdd, 1, -1},
		"searchadd":        {cmdSearchAdd, 1, -1},
		"lsinfo":           {cmdLsInfo, 0, 1},
		"list":             {cmdList, 1, -1},
		"count":            {cmdCount, 1, -1},
		"update":           {cmdUpdate, 0, 1},
		"listplaylists":    {cmdListPlaylists, 0, 0},
		"listplaylistinfo": {cmdListPlaylistInfo, 1, 1},
	}
}

// commandNames returns the command table keys in sorted order
func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// notInCommandList is reached only from inside a command list; outside one
// these commands are handled by the connection itself
func notInCommandList(_ *conn, _ []string) (*Response, error) {
	return nil, errArg("not allowed in command list")
}
