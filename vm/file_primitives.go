package vm

import "io"

// ---------------------------------------------------------------------------
// Handle Primitives shared by files, sockets and databases
// ---------------------------------------------------------------------------

// Handle objects share one resource; construct and copy acquire it and
// destroy releases it. The last release closes the resource.
func registerHandlePrimitives(t *ActionTable) {
	t.Register("HDL_CREATE", func(in *Interpreter, args List) *Object {
		hv, ok := args[1].Value().(HandleValue)
		if !ok {
			return in.EmptyValue(args[1])
		}
		hv.H.Acquire()
		args[0].SetPayload(hv)
		return nil
	})

	t.Register("HDL_CPY", func(in *Interpreter, args List) *Object {
		dest, ok := in.varArg(args, 0)
		if !ok {
			return nil
		}
		hv, ok := args[1].Value().(HandleValue)
		if !ok {
			return in.EmptyValue(args[1])
		}
		hv.H.Acquire()
		if old := HandleOf(dest); old != nil {
			if err := old.Release(); err != nil {
				execLog.Warningf("%s", err)
			}
		}
		dest.SetPayload(hv)
		return nil
	})

	t.Register("HDL_DESTR", func(in *Interpreter, args List) *Object {
		if h := HandleOf(args[0]); h != nil {
			if err := h.Release(); err != nil {
				execLog.Warningf("%s", err)
			}
			args[0].SetPayload(Declared())
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// File Primitives
// ---------------------------------------------------------------------------

func (in *Interpreter) fileArg(args List, i int) (*FileHandle, bool) {
	if f, ok := HandleOf(args[i]).(*FileHandle); ok {
		return f, true
	}
	in.EmptyValue(args[i])
	return nil, false
}

func registerFilePrimitives(t *ActionTable) {
	registerHandlePrimitives(t)

	// open path mode
	t.Register("FIL_OPEN", func(in *Interpreter, args List) *Object {
		path, ok := in.strArg(args, 0)
		if !ok {
			return nil
		}
		mode, ok := in.strArg(args, 1)
		if !ok {
			return nil
		}
		h, err := OpenFile(path, mode)
		if err != nil {
			execLog.Infof("%s", err)
			return in.RaiseError(FileError)
		}
		return temp(NewHandleValue(CategoryFile, h))
	})

	t.Register("FIL_CLOSE", func(in *Interpreter, args List) *Object {
		f, ok := in.fileArg(args, 0)
		if !ok {
			return nil
		}
		if err := f.Close(); err != nil {
			execLog.Infof("%s", err)
			return in.RaiseError(FileError)
		}
		return nil
	})

	t.Register("FIL_WRITE", func(in *Interpreter, args List) *Object {
		f, ok := in.fileArg(args, 0)
		if !ok {
			return nil
		}
		s, ok := in.strArg(args, 1)
		if !ok {
			return nil
		}
		return in.writeFile(f, s)
	})

	t.Register("FIL_WRITELN", func(in *Interpreter, args List) *Object {
		f, ok := in.fileArg(args, 0)
		if !ok {
			return nil
		}
		return in.writeFile(f, "\n")
	})

	t.Register("FIL_FLUSH", func(in *Interpreter, args List) *Object {
		f, ok := in.fileArg(args, 0)
		if !ok {
			return nil
		}
		if err := f.Flush(); err != nil {
			execLog.Infof("%s", err)
			return in.RaiseError(FileError)
		}
		return nil
	})

	// getln returns "" at the end of the file
	t.Register("FIL_GETLN", func(in *Interpreter, args List) *Object {
		f, ok := in.fileArg(args, 0)
		if !ok {
			return nil
		}
		r, err := f.Reader(in)
		if err != nil {
			execLog.Infof("%s", err)
			return in.RaiseError(FileError)
		}
		line, err := readLine(r)
		switch {
		case err == io.EOF:
			return temp(StringValue(""))
		case err != nil:
			execLog.Infof("%s: %s", f.Name, err)
			return in.RaiseError(FileError)
		}
		return temp(StringValue(line))
	})
}

func (in *Interpreter) writeFile(f *FileHandle, s string) *Object {
	w, err := f.Writer(in)
	if err == nil {
		_, err = io.WriteString(w, s)
	}
	if err != nil {
		execLog.Infof("%s", err)
		return in.RaiseError(FileError)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Socket Primitives
// ---------------------------------------------------------------------------

func registerSocketPrimitives(t *ActionTable) {
	socketArg := func(in *Interpreter, args List, i int) (*SocketHandle, bool) {
		if s, ok := HandleOf(args[i]).(*SocketHandle); ok {
			return s, true
		}
		in.EmptyValue(args[i])
		return nil, false
	}

	// dial "host:port"
	t.Register("SOC_DIAL", func(in *Interpreter, args List) *Object {
		addr, ok := in.strArg(args, 0)
		if !ok {
			return nil
		}
		if in.Drivers.Dial == nil {
			return in.RaiseError(FileError)
		}
		conn, err := in.Drivers.Dial("tcp", addr)
		if err != nil {
			execLog.Infof("dial %s: %s", addr, err)
			return in.RaiseError(FileError)
		}
		return temp(NewHandleValue(CategorySocket, NewSocketHandle(addr, conn)))
	})

	t.Register("SOC_WRITE", func(in *Interpreter, args List) *Object {
		sock, ok := socketArg(in, args, 0)
		if !ok {
			return nil
		}
		s, ok := in.strArg(args, 1)
		if !ok {
			return nil
		}
		if err := sock.Write(s); err != nil {
			execLog.Infof("%s", err)
			return in.RaiseError(FileError)
		}
		return nil
	})

	t.Register("SOC_GETLN", func(in *Interpreter, args List) *Object {
		sock, ok := socketArg(in, args, 0)
		if !ok {
			return nil
		}
		line, err := sock.ReadLine()
		switch {
		case err == io.EOF:
			return temp(StringValue(""))
		case err != nil:
			execLog.Infof("%s", err)
			return in.RaiseError(FileError)
		}
		return temp(StringValue(line))
	})

	t.Register("SOC_CLOSE", func(in *Interpreter, args List) *Object {
		sock, ok := socketArg(in, args, 0)
		if !ok {
			return nil
		}
		if err := sock.Close(); err != nil {
			execLog.Infof("%s", err)
			return in.RaiseError(FileError)
		}
		return nil
	})
}
