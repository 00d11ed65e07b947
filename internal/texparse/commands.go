package texparse

import "github.com/gogotex/submission-compile/internal/model"

// commandTable enumerates every \command this parser recognizes in its
// second regex pass, along with how to turn its captured arguments into a
// mentioned-file entry.
var commandTable = map[string]model.IncludeSpec{
	"input":            {Command: "input", FileType: model.FileTypeTeX, Extensions: []string{".tex"}, FileArgument: model.FileArgumentOne},
	"include":          {Command: "include", FileType: model.FileTypeTeX, Extensions: []string{".tex"}, FileArgument: model.FileArgumentOne},
	"InputIfFileExists": {Command: "InputIfFileExists", FileType: model.FileTypeTeX, Extensions: []string{".tex"}, FileArgument: model.FileArgumentOne},
	"documentstyle":    {Command: "documentstyle", FileType: model.FileTypeOther, Extensions: []string{".sty", ".cls"}, FileArgument: model.FileArgumentOne},
	"documentclass":    {Command: "documentclass", FileType: model.FileTypeOther, Extensions: []string{".cls"}, FileArgument: model.FileArgumentOne},
	"LoadClass":        {Command: "LoadClass", FileType: model.FileTypeOther, Extensions: []string{".cls"}, FileArgument: model.FileArgumentOne},
	"LoadClassWithOptions": {Command: "LoadClassWithOptions", FileType: model.FileTypeOther, Extensions: []string{".cls"}, FileArgument: model.FileArgumentOne, TakeOptions: true},
	"usepackage":       {Command: "usepackage", FileType: model.FileTypeOther, Extensions: []string{".sty"}, FileArgument: model.FileArgumentOne, TakeOptions: true, MultiArgs: true},
	"RequirePackage":   {Command: "RequirePackage", FileType: model.FileTypeOther, Extensions: []string{".sty"}, FileArgument: model.FileArgumentOne, TakeOptions: true, MultiArgs: true},
	"RequirePackageWithOptions": {Command: "RequirePackageWithOptions", FileType: model.FileTypeOther, Extensions: []string{".sty"}, FileArgument: model.FileArgumentOne, TakeOptions: true},
	"bibliography":     {Command: "bibliography", FileType: model.FileTypeBib, Extensions: []string{".bib"}, FileArgument: model.FileArgumentOne, MultiArgs: true},
	"includegraphics":  {Command: "includegraphics", FileType: model.FileTypeOther, Extensions: []string{".pdf", ".png", ".jpg", ".jpeg", ".eps"}, FileArgument: model.FileArgumentOne, TakeOptions: true},
	"psfig":            {Command: "psfig", FileType: model.FileTypeOther, Extensions: []string{".eps", ".ps"}, FileArgument: model.FileArgumentOne, TakeOptions: true},
	"import":           {Command: "import", FileType: model.FileTypeTeX, Extensions: []string{".tex"}, FileArgument: model.FileArgumentBoth},
	"subfile":          {Command: "subfile", FileType: model.FileTypeTeX, Extensions: []string{".tex"}, FileArgument: model.FileArgumentOne},
	"subfileinclude":   {Command: "subfileinclude", FileType: model.FileTypeTeX, Extensions: []string{".tex"}, FileArgument: model.FileArgumentOne},
	"includesvg":       {Command: "includesvg", FileType: model.FileTypeOther, Extensions: []string{".svg"}, FileArgument: model.FileArgumentOne, TakeOptions: true},
	"includepdf":       {Command: "includepdf", FileType: model.FileTypeOther, Extensions: []string{".pdf"}, FileArgument: model.FileArgumentOne, TakeOptions: true},
	"epsfbox":          {Command: "epsfbox", FileType: model.FileTypeOther, Extensions: []string{".eps"}, FileArgument: model.FileArgumentOne},
	"epsfig":           {Command: "epsfig", FileType: model.FileTypeOther, Extensions: []string{".eps"}, FileArgument: model.FileArgumentOne, TakeOptions: true},
	"loadglsentries":   {Command: "loadglsentries", FileType: model.FileTypeOther, Extensions: []string{".tex"}, FileArgument: model.FileArgumentOne, TakeOptions: true},
	"DTLloaddb":        {Command: "DTLloaddb", FileType: model.FileTypeOther, Extensions: []string{".csv", ".tex"}, FileArgument: model.FileArgumentTwo, TakeOptions: true},
	"DTLloadrawdb":     {Command: "DTLloadrawdb", FileType: model.FileTypeOther, Extensions: []string{".csv", ".tex"}, FileArgument: model.FileArgumentTwo, TakeOptions: true},
	"lstinputlisting":  {Command: "lstinputlisting", FileType: model.FileTypeOther, Extensions: []string{".tex"}, FileArgument: model.FileArgumentOne, TakeOptions: true},
	"usetikzlibrary":   {Command: "usetikzlibrary", FileType: model.FileTypeOther, Extensions: []string{".code.tex"}, FileArgument: model.FileArgumentOne, MultiArgs: true},
	"usepgflibrary":    {Command: "usepgflibrary", FileType: model.FileTypeOther, Extensions: []string{".code.tex"}, FileArgument: model.FileArgumentOne, MultiArgs: true},
	"tcbuselibrary":    {Command: "tcbuselibrary", FileType: model.FileTypeOther, Extensions: []string{".code.tex"}, FileArgument: model.FileArgumentOne, MultiArgs: true},
	"tcbincludegraphics": {Command: "tcbincludegraphics", FileType: model.FileTypeOther, Extensions: []string{".pdf", ".png", ".jpg"}, FileArgument: model.FileArgumentOne, TakeOptions: true},
	"asyinclude":       {Command: "asyinclude", FileType: model.FileTypeOther, Extensions: []string{".asy"}, FileArgument: model.FileArgumentOne, TakeOptions: true},
}

// conditionallyLoadedFiles are resolved-but-sometimes-absent files the
// include-graph builder must not warn about.
var conditionallyLoadedFiles = map[string]bool{
	"svglov3.clo": true,
}

// pdftexImageExtensions and dvipsImageExtensions drive the output-format
// inference: seeing both in one file's mentions is a conflicting_image_types
// issue (§4.1).
var pdftexImageExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true, ".mps": true,
}

var dvipsImageExtensions = map[string]bool{
	".eps": true, ".ps": true,
}
