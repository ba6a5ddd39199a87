package compiler

import (
	"github.com/beevik/etree"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/ident"
)

// sourceDir is the long name of the root of the source image.
const sourceDir = "SourceDir"

// defaultDir renders a DefaultDir segment, generating a short name when the
// long name is not already one.
func defaultDir(short, long, parent string) string {
	if long == "" || long == "." || long == sourceDir {
		if long == "" {
			return "."
		}
		return long
	}
	if short == "" && !attrval.IsShortFilename(long, false) {
		short = ident.ShortName(long, false, parent)
	}
	return fileName(short, long)
}

func parseDirectory(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, name, shortName, sourceName, shortSourceName string
	var diskID optInt
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Name":
			if in.Value == "." || in.Value == sourceDir {
				name = in.Value
			} else {
				name = c.longFilename(in, false)
			}
		case "ShortName":
			shortName = c.shortFilename(in, false)
		case "SourceName":
			if in.Value == "." {
				sourceName = in.Value
			} else {
				sourceName = c.longFilename(in, false)
			}
		case "ShortSourceName":
			shortSourceName = c.shortFilename(in, false)
		case "DiskId":
			diskID = some(c.integer(in, 1, attrval.MaxInt16))
		}
	})
	if shortName != "" && name == "" {
		c.requires(el, "ShortName", "Name")
	}
	if shortSourceName != "" && sourceName == "" {
		c.requires(el, "ShortSourceName", "SourceName")
	}
	if id == "" {
		if name == "" {
			c.expected(el, "Id")
			id = attrval.IllegalIdentifier
		} else {
			id = c.generate(loc, el.Tag, ident.Directory, s.directoryID, name)
		}
	}

	value := defaultDir(shortName, name, s.directoryID)
	if sourceName != "" {
		value += ":" + defaultDir(shortSourceName, sourceName, s.directoryID)
	}

	row := c.row(loc, "Directory")
	row.SetString("Directory", id)
	row.SetString("Directory_Parent", s.directoryID)
	row.SetString("DefaultDir", value)

	s.directoryID = id
	if diskID.set {
		s.diskID = diskID
	}
	c.parseChildren(el, s)
	return result{id: id}
}

func parseDirectoryRef(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id string
	var diskID optInt
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "DiskId":
			diskID = some(c.integer(in, 1, attrval.MaxInt16))
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	c.AddValidReference(loc, "Directory", id)

	s.directoryID = id
	if diskID.set {
		s.diskID = diskID
	}
	c.parseChildren(el, s)
	return result{id: id}
}

func parseMerge(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, sourceFile string
	var lang, diskID, compression optInt
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Language":
			lang = some(c.integer(in, 0, attrval.MaxUint16))
		case "SourceFile":
			sourceFile = c.text(in)
		case "DiskId":
			diskID = some(c.integer(in, 1, attrval.MaxInt16))
		case "FileCompression":
			switch c.yesNo(in) {
			case attrval.Yes:
				compression = some(1)
			case attrval.No:
				compression = some(0)
			}
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	if !lang.set {
		c.expected(el, "Language")
	}
	if sourceFile == "" {
		c.expected(el, "SourceFile")
	}
	if !diskID.set {
		diskID = s.diskID
	}
	if !diskID.set {
		c.requiresParent(el, "DiskId", "Directory")
		diskID = some(1)
	}

	row := c.row(loc, "WixMerge")
	row.SetString("WixMerge", id)
	row.SetInt("Language", lang.value)
	row.SetString("Directory_", s.directoryID)
	row.SetString("SourceFile", sourceFile)
	row.SetInt("DiskId", diskID.value)
	setOptInt(row, "FileCompression", compression)
	return result{id: id}
}
