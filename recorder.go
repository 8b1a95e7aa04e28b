/*  flutbot - Pixelflut image flooding client
    Copyright (C) 2019  David Vogel

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.  */

package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/coreos/go-semver/semver"
	gzip "github.com/klauspost/pgzip"
)

// Recording file format: gzip stream starting with a fixed header, followed
// by one record per wire write. All integers are little endian.
const recordingMagic = 1128616518 // ASCII "FREC" in little endian

const recordDataTypeBatch = 10

// Captures every batch written to the wire into a compressed .fluterec file.
// Workers write concurrently, so all writes lock.
type streamRecorder struct {
	Mutex sync.Mutex

	File      *os.File
	ZipWriter *gzip.Writer
}

func newStreamRecorder(path, server string) (*streamRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("Can't create file %v: %v", path, err)
	}

	zipWriter, err := gzip.NewWriterLevel(f, gzip.DefaultCompression)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("Can't initialize compression %v: %v", path, err)
	}
	zipWriter.Name = server
	zipWriter.Comment = "flutbot command stream recording"

	rec := &streamRecorder{
		File:      f,
		ZipWriter: zipWriter,
	}

	version := clientVersion.String()
	err = binary.Write(zipWriter, binary.LittleEndian, struct {
		MagicNumber   uint32
		VersionLength uint16
	}{
		MagicNumber:   recordingMagic,
		VersionLength: uint16(len(version)),
	})
	if err == nil {
		_, err = zipWriter.Write([]byte(version))
	}
	if err != nil {
		zipWriter.Close()
		f.Close()
		return nil, fmt.Errorf("Can't write to file %v: %v", path, err)
	}

	return rec, nil
}

func (rec *streamRecorder) WriteBatch(payload []byte) error {
	rec.Mutex.Lock()
	defer rec.Mutex.Unlock()

	err := binary.Write(rec.ZipWriter, binary.LittleEndian, struct {
		DataType uint8
		Time     int64
		Length   uint32
	}{
		DataType: recordDataTypeBatch,
		Time:     time.Now().UnixNano(),
		Length:   uint32(len(payload)),
	})
	if err == nil {
		_, err = rec.ZipWriter.Write(payload)
	}
	if err != nil {
		return fmt.Errorf("Can't write to file %v: %v", rec.File.Name(), err)
	}

	return nil
}

func (rec *streamRecorder) Close() {
	rec.Mutex.Lock()
	defer rec.Mutex.Unlock()

	rec.ZipWriter.Close()
	rec.File.Close()
}

// Reads a .fluterec recording back as the sequence of recorded payloads.
type streamReader struct {
	File      *os.File
	ZipReader *gzip.Reader

	Server  string
	Version *semver.Version
}

func openStreamReader(path string) (*streamReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Can't open recording %v: %v", path, err)
	}

	zipReader, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("Can't initialize gzip reader for %v: %v", path, err)
	}

	header := struct {
		MagicNumber   uint32
		VersionLength uint16
	}{}
	if err := binary.Read(zipReader, binary.LittleEndian, &header); err != nil {
		zipReader.Close()
		f.Close()
		return nil, fmt.Errorf("Can't read header of %v: %v", path, err)
	}
	if header.MagicNumber != recordingMagic {
		zipReader.Close()
		f.Close()
		return nil, fmt.Errorf("%v is not a flutbot recording", path)
	}

	rawVersion := make([]byte, header.VersionLength)
	if _, err := io.ReadFull(zipReader, rawVersion); err != nil {
		zipReader.Close()
		f.Close()
		return nil, fmt.Errorf("Can't read header of %v: %v", path, err)
	}

	version, err := semver.NewVersion(string(rawVersion))
	if err != nil {
		zipReader.Close()
		f.Close()
		return nil, fmt.Errorf("Recording %v has an invalid version %q: %v", path, rawVersion, err)
	}
	if version.Major > clientVersion.Major {
		zipReader.Close()
		f.Close()
		return nil, fmt.Errorf("Recording %v was written by version %v, this client only reads major version %v and below", path, version, clientVersion.Major)
	}

	return &streamReader{
		File:      f,
		ZipReader: zipReader,
		Server:    zipReader.Name,
		Version:   version,
	}, nil
}

// Returns the next recorded payload, or io.EOF after the last one.
func (sr *streamReader) ReadBatch() ([]byte, error) {
	record := struct {
		DataType uint8
		Time     int64
		Length   uint32
	}{}
	if err := binary.Read(sr.ZipReader, binary.LittleEndian, &record); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("Can't read record from %v: %v", sr.File.Name(), err)
	}

	if record.DataType != recordDataTypeBatch {
		return nil, fmt.Errorf("Unknown record type %v in %v", record.DataType, sr.File.Name())
	}

	payload := make([]byte, record.Length)
	if _, err := io.ReadFull(sr.ZipReader, payload); err != nil {
		return nil, fmt.Errorf("Can't read record from %v: %v", sr.File.Name(), err)
	}

	return payload, nil
}

func (sr *streamReader) Close() {
	sr.ZipReader.Close()
	sr.File.Close()
}
