// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package graphwire

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// objectSerializer handles struct{}, the bare object. TokenObject carries the
// whole value.
type objectSerializer struct{}

func (objectSerializer) Copy(_ *CopyContext, value reflect.Value) (reflect.Value, error) {
	return value, nil
}

func (objectSerializer) Write(*WriteContext, reflect.Value) error { return nil }

func (objectSerializer) Read(*ReadContext, reflect.Value) error { return nil }

// timeSerializer keeps the instant, the monotonic-free wall clock and the
// zone offset, using time.Time's own binary form.
type timeSerializer struct{}

func (timeSerializer) Copy(_ *CopyContext, value reflect.Value) (reflect.Value, error) {
	return value, nil
}

func (timeSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	data, err := value.Interface().(time.Time).MarshalBinary()
	if err != nil {
		return err
	}
	ctx.writer.WriteBinary(data)
	return nil
}

func (timeSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	offset := ctx.Position()
	var t time.Time
	if err := t.UnmarshalBinary(ctx.reader.ReadBinary()); err != nil {
		return malformedf(offset, "time: %v", err)
	}
	target.Set(reflect.ValueOf(t))
	return nil
}

// uuidSerializer writes the 16 raw bytes.
type uuidSerializer struct{}

func (uuidSerializer) Copy(_ *CopyContext, value reflect.Value) (reflect.Value, error) {
	return value, nil
}

func (uuidSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	id := value.Interface().(uuid.UUID)
	ctx.writer.WriteBytes(id[:])
	return nil
}

func (uuidSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	var id uuid.UUID
	ctx.reader.ReadFull(id[:])
	target.Set(reflect.ValueOf(id))
	return nil
}
